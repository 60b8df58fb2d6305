package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"darkframes/internal/frame"
)

// DummyOptions configures a simulated camera.
type DummyOptions struct {
	// Controls lists the simulated registers.
	Controls []string
	// Initial holds starting register values; missing registers start at 0.
	Initial map[string]int
	// Width and Height give the frame shape.
	Width, Height int
	// Value is the pixel value of every frame.
	Value int
	// Dynamic registers move one unit toward their set point per read
	// instead of jumping to it.
	Dynamic bool
	// Delay is slept by every Capture.
	Delay time.Duration
}

// Dummy is a simulated camera producing constant uint16 frames.
type Dummy struct {
	opts     DummyOptions
	controls *Registry

	mu        sync.Mutex
	registers map[string]int
	setpoints map[string]int
	captures  int
}

// NewDummy builds a simulated camera with one control per register.
func NewDummy(opts DummyOptions) (*Dummy, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("dummy camera: width and height must be positive")
	}
	d := &Dummy{
		opts:      opts,
		controls:  NewRegistry(),
		registers: make(map[string]int, len(opts.Controls)),
		setpoints: make(map[string]int, len(opts.Controls)),
	}
	for _, name := range opts.Controls {
		d.registers[name] = opts.Initial[name]
		d.setpoints[name] = opts.Initial[name]
		if err := d.controls.Register(name, Control{
			Get: func() (int, error) { return d.read(name), nil },
			Set: func(v int) error { d.write(name, v); return nil },
		}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dummy) read(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.registers[name]
	if d.opts.Dynamic {
		switch sp := d.setpoints[name]; {
		case v < sp:
			v++
		case v > sp:
			v--
		}
		d.registers[name] = v
	}
	return v
}

func (d *Dummy) write(name string, v int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setpoints[name] = v
	if !d.opts.Dynamic {
		d.registers[name] = v
	}
}

// Capture returns a frame filled with the configured value.
func (d *Dummy) Capture(ctx context.Context) (frame.Image, error) {
	if d.opts.Delay > 0 {
		select {
		case <-ctx.Done():
			return frame.Image{}, ctx.Err()
		case <-time.After(d.opts.Delay):
		}
	}
	d.mu.Lock()
	d.captures++
	d.mu.Unlock()
	return frame.Filled(frame.Uint16, float64(d.opts.Value), d.opts.Height, d.opts.Width)
}

// Captures returns how many frames were taken.
func (d *Dummy) Captures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captures
}

// Controls returns the register controls.
func (d *Dummy) Controls() *Registry { return d.controls }

// Configuration returns the registers and the pixel value.
func (d *Dummy) Configuration() (frame.Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := make(frame.Config, len(d.registers)+1)
	for name, v := range d.registers {
		cfg[name] = int64(v)
	}
	cfg["value"] = int64(d.opts.Value)
	return cfg, nil
}

// EstimateCapture returns the configured delay.
func (d *Dummy) EstimateCapture(map[string]int) time.Duration { return d.opts.Delay }
