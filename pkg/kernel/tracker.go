package kernel

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// tracker is the per-hand motion and grip state.
type tracker struct {
	scaled        Vec3
	previous      Vec3
	delta         Vec3
	orientation   Quat
	grasp         bool
	previousGrasp bool
	seeded        bool
	lastSeen      time.Time
}

func newTracker() *tracker {
	return &tracker{
		orientation:   mgl64.QuatIdent(),
		grasp:         true,
		previousGrasp: true,
	}
}

// observe folds a fresh sample into the tracker. The first sample after
// seeding is lost produces a zero delta.
func (t *tracker) observe(s Sample, scale Vec3, at time.Time) {
	t.scaled = Scale(s, scale)
	if !t.seeded {
		t.previous = t.scaled
		t.seeded = true
	}
	t.delta = t.scaled.Sub(t.previous)
	t.previous = t.scaled
	t.orientation = s.Orientation
	t.grasp = s.Grasp
	t.lastSeen = at
}

// idle records a tick without a new sample.
func (t *tracker) idle() {
	t.delta = Vec3{}
}

// drop forgets the motion reference after the stream went stale.
func (t *tracker) drop() {
	t.delta = Vec3{}
	t.seeded = false
}

func (t *tracker) stale(now time.Time, after time.Duration) bool {
	if after <= 0 || now.IsZero() {
		return false
	}
	return t.lastSeen.IsZero() || now.Sub(t.lastSeen) > after
}

// grip evaluates the transition table and advances the previous grasp flag.
func (t *tracker) grip() Grip {
	g := Transition(t.grasp, t.previousGrasp)
	t.previousGrasp = t.grasp
	return g
}
