package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is the virtual camera node driving both stereo viewports.
type Camera struct {
	Position    Vec3
	Orientation Quat
	// ReferenceDirection is the unit vector from the left to the right hand
	// seen on the last tick.
	ReferenceDirection Vec3
	// Eyes holds the stereo viewpoints relative to the node, keyed by viewport side.
	Eyes map[Hand]Vec3
}

func newCamera() Camera {
	return Camera{
		Orientation:        mgl64.QuatIdent(),
		ReferenceDirection: Vec3{1, 0, 0},
		Eyes:               make(map[Hand]Vec3, 2),
	}
}

// reset returns the node to the origin and places the eyes symmetrically
// about offset. The reference direction keeps tracking the hands.
func (c *Camera) reset(offset Vec3, separation float64) {
	c.Position = Vec3{}
	c.Orientation = mgl64.QuatIdent()
	half := Vec3{separation / 2, 0, 0}
	c.Eyes[Left] = offset.Sub(half)
	c.Eyes[Right] = offset.Add(half)
}

// integrate applies one camera increment. The view moves opposite to the
// hands: rotation is inverted and translation negated.
func (c *Camera) integrate(rotation Quat, translation Vec3) {
	c.Orientation = c.Orientation.Mul(rotation.Inverse()).Normalize()
	c.Position = c.Position.Sub(translation)
}

// Focus is the point both eyes look at.
func (c Camera) Focus() Vec3 {
	return c.Position
}

// EyePosition returns the world position of one stereo viewpoint.
func (c Camera) EyePosition(side Hand) Vec3 {
	return c.Position.Add(c.Orientation.Rotate(c.Eyes[side]))
}

func (c Camera) clone() Camera {
	eyes := make(map[Hand]Vec3, len(c.Eyes))
	for side, v := range c.Eyes {
		eyes[side] = v
	}
	c.Eyes = eyes
	return c
}

// RotationAngle returns the magnitude in radians of the rotation q encodes.
func RotationAngle(q Quat) float64 {
	w := math.Abs(q.Normalize().W)
	if w > 1 {
		w = 1
	}
	return 2 * math.Acos(w)
}
