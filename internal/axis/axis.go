package axis

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// ErrConfiguration marks malformed axes and mismatched axis sets. It is
// reported before any library mutation begins.
var ErrConfiguration = errors.New("configuration error")

// Axis is the discretization rule for one control: the values
// Min, Min+Step, Min+2*Step, ... not exceeding Max. Threshold and Timeout
// drive the camera while it converges on each value.
type Axis struct {
	Min       int     `msgpack:"min" toml:"min"`
	Max       int     `msgpack:"max" toml:"max"`
	Step      int     `msgpack:"step" toml:"step"`
	Threshold int     `msgpack:"threshold" toml:"threshold"`
	Timeout   float64 `msgpack:"timeout" toml:"timeout"`
}

// New builds a validated Axis.
func New(minValue, maxValue, step, threshold int, timeout float64) (Axis, error) {
	a := Axis{Min: minValue, Max: maxValue, Step: step, Threshold: threshold, Timeout: timeout}
	if err := a.Validate(); err != nil {
		return Axis{}, err
	}
	return a, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(minValue, maxValue, step, threshold int, timeout float64) Axis {
	a, err := New(minValue, maxValue, step, threshold, timeout)
	if err != nil {
		panic(err)
	}
	return a
}

// Validate reports whether the axis can produce a value list.
func (a Axis) Validate() error {
	var problems []string
	if a.Min > a.Max {
		problems = append(problems, fmt.Sprintf("min (%d) greater than max (%d)", a.Min, a.Max))
	}
	if a.Step < 1 {
		problems = append(problems, fmt.Sprintf("step (%d) must be at least 1", a.Step))
	}
	if a.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("threshold (%d) must not be negative", a.Threshold))
	}
	if a.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("timeout (%g) must not be negative", a.Timeout))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// All yields the axis values in ascending order. Max is a ceiling and is
// only produced when Step divides Max-Min.
func (a Axis) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		if a.Step < 1 || a.Min > a.Max {
			return
		}
		for v := a.Min; ; v += a.Step {
			if !yield(v) {
				return
			}
			// unsigned distance so v+Step cannot wrap past Max
			if uint(a.Max-v) < uint(a.Step) {
				return
			}
		}
	}
}

// Values returns the axis values as a slice.
func (a Axis) Values() []int {
	if a.Step < 1 || a.Min > a.Max {
		return nil
	}
	values := make([]int, 0, a.Count())
	for v := range a.All() {
		values = append(values, v)
	}
	return values
}

// Count returns the number of values produced by All.
func (a Axis) Count() int {
	if a.Step < 1 || a.Min > a.Max {
		return 0
	}
	return int(uint(a.Max-a.Min)/uint(a.Step)) + 1
}

// TimeoutDuration converts Timeout (seconds) to a duration.
func (a Axis) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout * float64(time.Second))
}

func (a Axis) String() string {
	return fmt.Sprintf("[%d..%d step %d] threshold=%d timeout=%gs", a.Min, a.Max, a.Step, a.Threshold, a.Timeout)
}
