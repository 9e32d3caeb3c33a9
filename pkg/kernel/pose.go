// Package kernel implements the master console control kernel.
//
// Each tick it folds one pose sample per master manipulator into two
// relative-motion cursors, a grip transition code per hand and an
// incremental camera pose. The kernel is not safe for concurrent use: the
// host must deliver samples, mode changes and ticks from a single goroutine.
package kernel

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	Vec3 = mgl64.Vec3
	Quat = mgl64.Quat
)

// Hand identifies a master manipulator.
type Hand string

const (
	Left  Hand = "left"
	Right Hand = "right"
)

// Hands returns both hands in display order.
func Hands() []Hand {
	return []Hand{Left, Right}
}

// Sample is one reading from a master manipulator.
type Sample struct {
	Position    Vec3
	Orientation Quat
	// Grasp is the raw gripper signal: true while released, false while pinched.
	Grasp bool
	// At is the acquisition time. Zero means the tick time.
	At time.Time
}

// Scale multiplies the sample position elementwise by scale.
func Scale(s Sample, scale Vec3) Vec3 {
	return Vec3{
		s.Position[0] * scale[0],
		s.Position[1] * scale[1],
		s.Position[2] * scale[2],
	}
}
