package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gwillem/rvinci/pkg/kernel"
	"github.com/gwillem/rvinci/pkg/teleop"
)

// busSource fails the test if it is read after Close.
type busSource struct {
	mu         sync.Mutex
	closed     bool
	readClosed bool
}

func (b *busSource) Sample(ctx context.Context) (kernel.Sample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.readClosed = true
		return kernel.Sample{}, errors.New("bus closed")
	}
	time.Sleep(time.Millisecond)
	return kernel.Sample{Orientation: mgl64.QuatIdent(), Grasp: true}, nil
}

func (b *busSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestStartController_StopWaitsForLoop(t *testing.T) {
	left, right := &busSource{}, &busSource{}
	ctrl, err := teleop.NewController(teleop.Config{
		Sources: map[kernel.Hand]teleop.Source{kernel.Left: left, kernel.Right: right},
		Kernel:  kernel.DefaultConfig(),
		Hz:      teleop.MaxHz,
	})
	require.NoError(t, err)

	stop := startController(ctrl, zap.NewNop())
	select {
	case <-ctrl.States():
	case <-time.After(2 * time.Second):
		t.Fatal("no state published")
	}

	stop()
	require.NoError(t, ctrl.Close())
	time.Sleep(20 * time.Millisecond)

	for _, s := range []*busSource{left, right} {
		s.mu.Lock()
		assert.False(t, s.readClosed, "source read after close")
		s.mu.Unlock()
	}
}
