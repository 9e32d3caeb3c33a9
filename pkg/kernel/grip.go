package kernel

// Grip is the transition code derived from a hand's grasp signal.
type Grip int

const (
	GripNone    Grip = 0 // remains released
	GripHold    Grip = 1 // remains grasped
	GripGrab    Grip = 2 // became grasped
	GripRelease Grip = 3 // became released
)

func (g Grip) String() string {
	switch g {
	case GripNone:
		return "none"
	case GripHold:
		return "hold"
	case GripGrab:
		return "grab"
	case GripRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Transition encodes a (current, previous) pair of grasp signals.
// A false signal means the gripper is pinched.
func Transition(current, previous bool) Grip {
	switch {
	case !current && previous:
		return GripGrab
	case !current && !previous:
		return GripHold
	case current && !previous:
		return GripRelease
	default:
		return GripNone
	}
}
