package kernel

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func newKernel(t *testing.T, mutate func(*Config)) *Kernel {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	k, err := New(cfg)
	require.NoError(t, err)
	return k
}

func unitScale(c *Config) {
	c.Scale = Vec3{1, 1, 1}
	c.CursorSpread = 0
}

func at(x, y, z float64) Sample {
	return Sample{Position: Vec3{x, y, z}, Orientation: mgl64.QuatIdent(), Grasp: true}
}

func both(l, r Sample) Input {
	return Input{Samples: map[Hand]Sample{Left: l, Right: r}}
}

func assertVec(t *testing.T, want, got Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "component %d of %v", i, got)
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		current, previous bool
		want              Grip
	}{
		{false, true, GripGrab},
		{false, false, GripHold},
		{true, false, GripRelease},
		{true, true, GripNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Transition(tt.current, tt.previous), "Transition(%v, %v)", tt.current, tt.previous)
	}
}

func TestGripSequence(t *testing.T) {
	k := newKernel(t, nil)

	var got []Grip
	for _, grasp := range []bool{true, true, false, false, true} {
		s := at(0, 0, 0)
		s.Grasp = grasp
		out := k.Tick(Input{Samples: map[Hand]Sample{Left: s}})
		got = append(got, out.Grips[Left])
		assert.Equal(t, GripNone, out.Grips[Right])
	}

	assert.Equal(t, []Grip{GripNone, GripNone, GripGrab, GripHold, GripRelease}, got)
}

func TestGripDeterminism(t *testing.T) {
	run := func(seed int64) []Grip {
		rng := rand.New(rand.NewSource(seed))
		k := newKernel(t, nil)
		var codes []Grip
		for i := 0; i < 500; i++ {
			l, r := at(0, 0, 0), at(1, 0, 0)
			l.Grasp = rng.Intn(2) == 0
			r.Grasp = rng.Intn(2) == 0
			out := k.Tick(both(l, r))
			codes = append(codes, out.Grips[Left], out.Grips[Right])
		}
		return codes
	}

	first := run(7)
	assert.Equal(t, first, run(7))
	assert.Len(t, first, 1000)
}

func TestCursorIntegration(t *testing.T) {
	k := newKernel(t, func(c *Config) {
		c.Scale = Vec3{5, 5, 5}
		c.CursorSpread = 0
	})

	k.Tick(both(at(0, 0, 0), at(0, 0, 0)))
	k.Tick(both(at(0.1, 0, 0), at(0.1, 0, 0)))

	last := at(0.1, 0.1, 0)
	last.Orientation = mgl64.QuatRotate(0.3, Vec3{0, 0, 1})
	out := k.Tick(both(last, last))

	for _, h := range Hands() {
		assertVec(t, Vec3{0.5, 0.5, 0}, out.Cursors[h].Position)
		assert.Equal(t, last.Orientation, out.Cursors[h].Orientation, "orientation replaced for %s", h)
	}
	assertVec(t, Vec3{}, out.Camera.Position)
}

func TestFirstSampleDoesNotJump(t *testing.T) {
	k := newKernel(t, nil)

	out := k.Tick(both(at(3, 4, 5), at(6, 7, 8)))

	assertVec(t, Vec3{-0.6, 0, 0}, out.Cursors[Left].Position)
	assertVec(t, Vec3{0.6, 0, 0}, out.Cursors[Right].Position)
}

func TestMissingSampleKeepsState(t *testing.T) {
	k := newKernel(t, unitScale)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	k.Tick(both(at(0.5, 0, 0), at(1, 0, 0)))
	out := k.Tick(Input{})
	out = k.Tick(Input{})

	assertVec(t, Vec3{0.5, 0, 0}, out.Cursors[Left].Position)
	assertVec(t, Vec3{}, out.Cursors[Right].Position)
}

func TestClutchFreezesMotion(t *testing.T) {
	for _, cameraMode := range []bool{false, true} {
		k := newKernel(t, nil)
		k.SetCameraMode(cameraMode)
		k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
		k.SetClutch(true)

		rng := rand.New(rand.NewSource(1))
		before := k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
		for i := 0; i < 100; i++ {
			l := at(rng.Float64(), rng.Float64(), rng.Float64())
			r := at(rng.Float64()+2, rng.Float64(), rng.Float64())
			r.Orientation = mgl64.QuatRotate(rng.Float64(), Vec3{0, 1, 0})
			out := k.Tick(both(l, r))

			require.True(t, out.Clutched)
			assert.Equal(t, before.Cursors, out.Cursors)
			assert.Equal(t, before.Camera.Position, out.Camera.Position)
			assert.Equal(t, before.Camera.Orientation, out.Camera.Orientation)
		}
	}
}

func TestClutchReleaseHasNoJump(t *testing.T) {
	k := newKernel(t, unitScale)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	k.SetClutch(true)
	k.Tick(both(at(5, 5, 5), at(6, 5, 5)))
	k.SetClutch(false)
	out := k.Tick(both(at(5.1, 5, 5), at(6.1, 5, 5)))

	assertVec(t, Vec3{0.1, 0, 0}, out.Cursors[Left].Position)
	assertVec(t, Vec3{0.1, 0, 0}, out.Cursors[Right].Position)
}

func TestCameraModeExcludesCursors(t *testing.T) {
	k := newKernel(t, unitScale)
	k.SetCameraMode(true)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	out := k.Tick(both(at(0.3, 0.2, 0.1), at(1.3, 0.2, 0.1)))

	assertVec(t, Vec3{}, out.Cursors[Left].Position)
	assertVec(t, Vec3{}, out.Cursors[Right].Position)
	assert.True(t, out.CameraMode)
}

func TestCameraTranslationIsInverted(t *testing.T) {
	k := newKernel(t, unitScale)
	k.SetCameraMode(true)
	d := Vec3{0.1, -0.2, 0.05}

	k.Tick(both(at(-1, 0, 0), at(1, 0, 0)))
	out := k.Tick(both(at(-1+d[0], d[1], d[2]), at(1+d[0], d[1], d[2])))

	assertVec(t, d.Mul(-2), out.Camera.Position)
	assert.InDelta(t, 0, RotationAngle(out.Camera.Orientation), 1e-6)
}

func TestCameraRotationIsInverted(t *testing.T) {
	k := newKernel(t, unitScale)
	k.SetCameraMode(true)
	theta := 0.1

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	out := k.Tick(both(at(0, 0, 0), at(math.Cos(theta), math.Sin(theta), 0)))

	assert.InDelta(t, theta, RotationAngle(out.Camera.Orientation), 1e-6)
	assertVec(t, Vec3{math.Cos(theta), -math.Sin(theta), 0}, out.Camera.Orientation.Rotate(Vec3{1, 0, 0}))
	assertVec(t, Vec3{math.Cos(theta), math.Sin(theta), 0}, out.Camera.ReferenceDirection)
	assert.InDelta(t, 1, out.Camera.Orientation.Len(), eps)
}

func TestReferenceDirectionContinuity(t *testing.T) {
	k := newKernel(t, unitScale)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	for i := 1; i <= 10; i++ {
		a := float64(i) * math.Pi / 20
		k.Tick(both(at(0, 0, 0), at(math.Cos(a), math.Sin(a), 0)))
	}

	k.SetCameraMode(true)
	out := k.Tick(both(at(0, 0, 0), at(0, 1, 0)))
	assert.InDelta(t, 0, RotationAngle(out.Camera.Orientation), 1e-6)

	a := math.Pi/2 + 0.05
	out = k.Tick(both(at(0, 0, 0), at(math.Cos(a), math.Sin(a), 0)))
	assert.InDelta(t, 0.05, RotationAngle(out.Camera.Orientation), 1e-6)
}

func TestReferenceDirectionDegenerate(t *testing.T) {
	k := newKernel(t, unitScale)
	k.SetCameraMode(true)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	out := k.Tick(both(at(0.5, 0, 0), at(0.5, 0, 0)))

	assertVec(t, Vec3{1, 0, 0}, out.Camera.ReferenceDirection)
	assert.InDelta(t, 0, RotationAngle(out.Camera.Orientation), 1e-6)
	assertVec(t, Vec3{}, out.Camera.Position)

	out = k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	assertVec(t, Vec3{1, 0, 0}, out.Camera.ReferenceDirection)
	assert.InDelta(t, 0, RotationAngle(out.Camera.Orientation), 1e-6)
}

func TestCameraAntiparallelFlip(t *testing.T) {
	k := newKernel(t, unitScale)
	k.SetCameraMode(true)

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	out := k.Tick(both(at(1, 0, 0), at(0, 0, 0)))

	assertVec(t, Vec3{-1, 0, 0}, out.Camera.ReferenceDirection)
	assert.InDelta(t, math.Pi, RotationAngle(out.Camera.Orientation), 1e-6)
	assert.InDelta(t, 1, out.Camera.Orientation.Len(), eps)
	assertVec(t, Vec3{-1, 0, 0}, out.Camera.Orientation.Rotate(Vec3{1, 0, 0}))
	assertVec(t, Vec3{}, out.Camera.Position)
}

func TestResetFixedPoint(t *testing.T) {
	k := newKernel(t, nil)
	k.SetCameraMode(true)
	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	k.Tick(both(at(0.2, 0.3, 0), at(1, 1, 0)))
	require.NotEqual(t, Vec3{}, k.Camera().Position)

	k.Reset()
	first := k.Camera()
	k.Reset()
	second := k.Camera()

	assert.Equal(t, first, second)
	assert.Equal(t, Vec3{}, second.Position)
	assert.Equal(t, mgl64.QuatIdent(), second.Orientation)
	assertVec(t, Vec3{-0.03, -3, 1.5}, second.Eyes[Left])
	assertVec(t, Vec3{0.03, -3, 1.5}, second.Eyes[Right])
	assert.Equal(t, DefaultConfig(), k.Config())
}

func TestRequestResetAppliesOnNextTick(t *testing.T) {
	k := newKernel(t, func(c *Config) { c.Scale = Vec3{1, 1, 1} })

	k.Tick(both(at(0, 0, 0), at(1, 0, 0)))
	k.Tick(both(at(0.2, 0, 0), at(1.2, 0, 0)))
	k.RequestReset()
	assertVec(t, Vec3{-0.4, 0, 0}, k.Cursor(Left).Position)

	out := k.Tick(both(at(0.2, 0, 0), at(1.2, 0, 0)))

	assertVec(t, Vec3{-0.6, 0, 0}, out.Cursors[Left].Position)
	assertVec(t, Vec3{0.6, 0, 0}, out.Cursors[Right].Position)
}

func TestEyePosition(t *testing.T) {
	k := newKernel(t, nil)
	cam := k.Camera()

	assertVec(t, Vec3{-0.03, -3, 1.5}, cam.EyePosition(Left))
	assertVec(t, Vec3{}, cam.Focus())
}

func TestStaleHandIsReseeded(t *testing.T) {
	k := newKernel(t, func(c *Config) {
		unitScale(c)
		c.StaleAfter = 100 * time.Millisecond
	})
	t0 := time.Unix(1000, 0)

	out := k.Tick(Input{Samples: map[Hand]Sample{Left: at(0, 0, 0), Right: at(1, 0, 0)}, At: t0})
	assert.Empty(t, out.Stale)

	out = k.Tick(Input{Samples: map[Hand]Sample{Right: at(1.1, 0, 0)}, At: t0.Add(50 * time.Millisecond)})
	assert.False(t, out.Stale[Left])

	out = k.Tick(Input{Samples: map[Hand]Sample{Right: at(1.2, 0, 0)}, At: t0.Add(200 * time.Millisecond)})
	assert.True(t, out.Stale[Left])
	assert.False(t, out.Stale[Right])

	out = k.Tick(Input{Samples: map[Hand]Sample{Left: at(9, 9, 9), Right: at(1.2, 0, 0)}, At: t0.Add(210 * time.Millisecond)})
	assert.Empty(t, out.Stale)
	assertVec(t, Vec3{}, out.Cursors[Left].Position)
	assertVec(t, Vec3{0.2, 0, 0}, out.Cursors[Right].Position)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"default", func(*Config) {}, nil},
		{"zero scale", func(c *Config) { c.Scale[1] = 0 }, ErrInvalidScale},
		{"negative scale", func(c *Config) { c.Scale[2] = -1 }, ErrInvalidScale},
		{"nan scale", func(c *Config) { c.Scale[0] = math.NaN() }, ErrInvalidScale},
		{"negative separation", func(c *Config) { c.StereoSeparation = -0.1 }, ErrInvalidSeparation},
		{"negative stale", func(c *Config) { c.StaleAfter = -time.Second }, ErrInvalidStaleAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)

			_, err = New(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
