package kernel

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// minSeparation is the shortest hand separation that still defines a
// reference direction.
const minSeparation = 1e-9

// Input carries the samples that arrived since the previous tick. A hand
// missing from Samples keeps its prior state.
type Input struct {
	Samples map[Hand]Sample
	At      time.Time
}

// Output is the kernel state after a tick.
type Output struct {
	Tick       uint64
	Cursors    map[Hand]Cursor
	Grips      map[Hand]Grip
	Camera     Camera
	Clutched   bool
	CameraMode bool
	// Stale lists hands whose stream exceeded Config.StaleAfter.
	Stale map[Hand]bool
}

// Kernel owns all per-session teleoperation state.
type Kernel struct {
	cfg     Config
	hands   map[Hand]*tracker
	cursors map[Hand]*Cursor
	camera  Camera

	// referenceValid is false until both hands have produced a direction,
	// and again after either stream went stale.
	referenceValid bool

	clutch       bool
	cameraMode   bool
	resetPending bool
	ticks        uint64
}

// New validates cfg and returns a kernel in its reset state.
func New(cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kernel config: %w", err)
	}
	k := &Kernel{
		cfg:     cfg,
		hands:   make(map[Hand]*tracker, 2),
		cursors: make(map[Hand]*Cursor, 2),
		camera:  newCamera(),
	}
	for _, h := range Hands() {
		k.hands[h] = newTracker()
		k.cursors[h] = &Cursor{}
	}
	k.Reset()
	return k, nil
}

// Config returns the settings the kernel was built with.
func (k *Kernel) Config() Config {
	return k.cfg
}

// SetClutch engages or releases the clutch. While engaged, motion is
// tracked but neither cursors nor camera move.
func (k *Kernel) SetClutch(on bool) {
	k.clutch = on
}

// Clutched reports whether the clutch is engaged.
func (k *Kernel) Clutched() bool {
	return k.clutch
}

// SetCameraMode selects whether hand motion drives the camera instead of
// the cursors.
func (k *Kernel) SetCameraMode(on bool) {
	k.cameraMode = on
}

// CameraMode reports whether hand motion drives the camera.
func (k *Kernel) CameraMode() bool {
	return k.cameraMode
}

// RequestReset schedules a reset for the start of the next tick.
func (k *Kernel) RequestReset() {
	k.resetPending = true
}

// Reset homes the camera and both cursors. Configuration and hand tracking
// are kept.
func (k *Kernel) Reset() {
	k.camera.reset(k.cfg.CameraOffset, k.cfg.StereoSeparation)
	for _, h := range Hands() {
		*k.cursors[h] = homeCursor(h, k.cfg.CursorSpread)
	}
	k.resetPending = false
}

// Camera returns a copy of the current camera state.
func (k *Kernel) Camera() Camera {
	return k.camera.clone()
}

// Cursor returns the current pose of a hand's cursor.
func (k *Kernel) Cursor(h Hand) Cursor {
	return *k.cursors[h]
}

// Tick runs one control pass.
func (k *Kernel) Tick(in Input) Output {
	if k.resetPending {
		k.Reset()
	}
	k.ticks++

	out := Output{
		Tick:       k.ticks,
		Cursors:    make(map[Hand]Cursor, 2),
		Grips:      make(map[Hand]Grip, 2),
		Clutched:   k.clutch,
		CameraMode: k.cameraMode,
		Stale:      make(map[Hand]bool, 2),
	}

	for _, h := range Hands() {
		t := k.hands[h]
		if s, ok := in.Samples[h]; ok {
			at := s.At
			if at.IsZero() {
				at = in.At
			}
			t.observe(s, k.cfg.Scale, at)
		} else if t.stale(in.At, k.cfg.StaleAfter) {
			t.drop()
			k.referenceValid = false
			out.Stale[h] = true
		} else {
			t.idle()
		}
		out.Grips[h] = t.grip()
	}

	direction, ok := k.direction()

	switch {
	case k.clutch:
		// Deltas are consumed without effect; only the reference moves.
	case k.cameraMode:
		rotation := mgl64.QuatIdent()
		if ok && k.referenceValid {
			rotation = mgl64.QuatBetweenVectors(k.camera.ReferenceDirection, direction)
		}
		k.camera.integrate(rotation, k.hands[Left].delta.Add(k.hands[Right].delta))
	default:
		for _, h := range Hands() {
			t := k.hands[h]
			k.cursors[h].integrate(t.delta, t.orientation)
		}
	}

	if ok {
		k.camera.ReferenceDirection = direction
		k.referenceValid = true
	}

	for _, h := range Hands() {
		out.Cursors[h] = *k.cursors[h]
	}
	out.Camera = k.camera.clone()
	return out
}

// direction returns the unit vector from the left to the right hand.
func (k *Kernel) direction() (Vec3, bool) {
	l, r := k.hands[Left], k.hands[Right]
	if !l.seeded || !r.seeded {
		return Vec3{}, false
	}
	d := r.scaled.Sub(l.scaled)
	if d.Len() < minSeparation {
		return Vec3{}, false
	}
	return d.Normalize(), true
}
