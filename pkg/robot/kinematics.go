package robot

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/rvinci/pkg/kernel"
)

// SO-101 link lengths in meters.
const (
	BaseHeight = 0.0542 // pan axis to shoulder lift axis
	UpperArm   = 0.1160
	Forearm    = 0.1350
	WristLink  = 0.1010 // wrist flex axis to the gripper tip
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// ForwardKinematics returns the gripper tip pose relative to the arm base.
// With all joints at zero the arm points straight along +X.
func ForwardKinematics(j Joints) (kernel.Vec3, kernel.Quat) {
	pan := mgl64.QuatRotate(j[ShoulderPan], axisZ)
	shoulder := pan.Mul(mgl64.QuatRotate(j[ShoulderLift], axisY))
	elbow := shoulder.Mul(mgl64.QuatRotate(j[ElbowFlex], axisY))
	wrist := elbow.Mul(mgl64.QuatRotate(j[WristFlex], axisY))
	tool := wrist.Mul(mgl64.QuatRotate(j[WristRoll], axisX))

	p := kernel.Vec3{0, 0, BaseHeight}
	p = p.Add(shoulder.Rotate(kernel.Vec3{UpperArm, 0, 0}))
	p = p.Add(elbow.Rotate(kernel.Vec3{Forearm, 0, 0}))
	p = p.Add(wrist.Rotate(kernel.Vec3{WristLink, 0, 0}))
	return p, tool.Normalize()
}
