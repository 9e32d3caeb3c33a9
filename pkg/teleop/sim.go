package teleop

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/rvinci/pkg/kernel"
)

// SimSource is a deterministic random-walk manipulator for running without
// hardware.
type SimSource struct {
	mu       sync.Mutex
	rng      *rand.Rand
	home     kernel.Vec3
	position kernel.Vec3
	yaw      float64
	grasp    bool
	step     float64
	now      func() time.Time
}

// NewSimSource returns a source wandering around home. The same seed always
// yields the same sample sequence.
func NewSimSource(home kernel.Vec3, seed int64) *SimSource {
	return &SimSource{
		rng:      rand.New(rand.NewSource(seed)),
		home:     home,
		position: home,
		grasp:    true,
		step:     0.002,
		now:      time.Now,
	}
}

// Sample advances the walk by one step.
func (s *SimSource) Sample(ctx context.Context) (kernel.Sample, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.position {
		// Drift back towards home so the walk stays bounded.
		pull := (s.home[i] - s.position[i]) * 0.01
		s.position[i] += (s.rng.Float64()*2-1)*s.step + pull
	}
	s.yaw += (s.rng.Float64()*2 - 1) * 0.01
	if s.rng.Float64() < 0.01 {
		s.grasp = !s.grasp
	}

	return kernel.Sample{
		Position:    s.position,
		Orientation: mgl64.QuatRotate(s.yaw, kernel.Vec3{0, 0, 1}),
		Grasp:       s.grasp,
		At:          s.now(),
	}, nil
}

// Close implements Source.
func (s *SimSource) Close() error {
	return nil
}
