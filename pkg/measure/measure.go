// Package measure implements grip-driven point-to-point distance measurement.
package measure

import "github.com/gwillem/rvinci/pkg/kernel"

// State is the phase of a measurement.
type State int

const (
	Begin State = iota
	StartMeasurement
	Moving
	EndMeasurement
)

func (s State) String() string {
	switch s {
	case Begin:
		return "begin"
	case StartMeasurement:
		return "start"
	case Moving:
		return "moving"
	case EndMeasurement:
		return "end"
	default:
		return "unknown"
	}
}

// Result is a completed measurement.
type Result struct {
	Start    kernel.Vec3
	End      kernel.Vec3
	Distance float64
}

// Machine measures the distance a cursor travels between a grab and the
// following release.
type Machine struct {
	state   State
	start   kernel.Vec3
	current kernel.Vec3
	last    Result
	done    bool
}

// State returns the current phase.
func (m *Machine) State() State {
	return m.state
}

// Current returns the in-progress measurement, if any.
func (m *Machine) Current() (Result, bool) {
	if m.state != StartMeasurement && m.state != Moving {
		return Result{}, false
	}
	return newResult(m.start, m.current), true
}

// Last returns the most recent completed measurement.
func (m *Machine) Last() (Result, bool) {
	return m.last, m.done
}

// Step advances the machine with one tick's grip code and cursor position.
// It reports whether a measurement completed on this tick.
func (m *Machine) Step(g kernel.Grip, position kernel.Vec3) bool {
	switch m.state {
	case StartMeasurement, Moving:
		switch g {
		case kernel.GripHold:
			m.current = position
			m.state = Moving
		case kernel.GripRelease:
			m.last = newResult(m.start, position)
			m.done = true
			m.state = EndMeasurement
			return true
		default:
			m.state = Begin
		}
	default:
		if g == kernel.GripGrab {
			m.start = position
			m.current = position
			m.state = StartMeasurement
		} else {
			m.state = Begin
		}
	}
	return false
}

// Reset abandons any measurement in progress. The last result is kept.
func (m *Machine) Reset() {
	m.state = Begin
}

func newResult(start, end kernel.Vec3) Result {
	return Result{
		Start:    start,
		End:      end,
		Distance: end.Sub(start).Len(),
	}
}
