package kernel

import "github.com/go-gl/mathgl/mgl64"

// Cursor is the pose of a virtual cursor. Position accumulates hand motion;
// orientation mirrors the hand one to one.
type Cursor struct {
	Position    Vec3
	Orientation Quat
}

func homeCursor(h Hand, spread float64) Cursor {
	x := spread
	if h == Left {
		x = -spread
	}
	return Cursor{
		Position:    Vec3{x, 0, 0},
		Orientation: mgl64.QuatIdent(),
	}
}

func (c *Cursor) integrate(delta Vec3, orientation Quat) {
	c.Position = c.Position.Add(delta)
	c.Orientation = orientation
}
