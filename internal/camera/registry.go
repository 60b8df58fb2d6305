package camera

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownControl is returned for control names that were never
// registered.
var ErrUnknownControl = errors.New("unknown control")

// Control reads and writes one camera setting.
type Control struct {
	Get func() (int, error)
	Set func(int) error
}

// Registry maps control names to controls.
type Registry struct {
	mu       sync.RWMutex
	controls map[string]Control
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{controls: make(map[string]Control)}
}

// Register adds a control. Names must be unique and non-empty and both
// accessors are required.
func (r *Registry) Register(name string, c Control) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("register control: empty name")
	}
	if c.Get == nil || c.Set == nil {
		return fmt.Errorf("register control %q: getter and setter are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.controls[name]; ok {
		return fmt.Errorf("register control %q: already registered", name)
	}
	r.controls[name] = c
	r.order = append(r.order, name)
	return nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) lookup(name string) (Control, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[name]
	if !ok {
		return Control{}, fmt.Errorf("%w: %q", ErrUnknownControl, name)
	}
	return c, nil
}

// Get reads the current value of a control.
func (r *Registry) Get(name string) (int, error) {
	c, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := c.Get()
	if err != nil {
		return 0, fmt.Errorf("read control %s: %w", name, err)
	}
	return v, nil
}

// Set writes a control.
func (r *Registry) Set(name string, value int) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := c.Set(value); err != nil {
		return fmt.Errorf("set control %s to %d: %w", name, value, err)
	}
	return nil
}

// Check returns ErrUnknownControl for the first name not registered.
func (r *Registry) Check(names []string) error {
	for _, name := range names {
		if _, err := r.lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the current values of names, in order.
func (r *Registry) Read(names []string) ([]int, error) {
	values := make([]int, len(names))
	for i, name := range names {
		v, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
