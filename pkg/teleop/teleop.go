// Package teleop runs the master console control loop.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gwillem/rvinci/pkg/kernel"
	"github.com/gwillem/rvinci/pkg/measure"
)

// Source produces samples for one master manipulator.
type Source interface {
	Sample(ctx context.Context) (kernel.Sample, error)
	Close() error
}

// disabler is implemented by sources that must be made passive before use.
type disabler interface {
	Disable(ctx context.Context) error
}

// State is a snapshot published after every tick.
type State struct {
	Output       kernel.Output
	Measurements map[kernel.Hand]Measurement
	Timestamp    time.Time
	Error        error
}

// Measurement is the per-hand measurement status.
type Measurement struct {
	State   measure.State
	Current *measure.Result
	Last    *measure.Result
}

// MaxHz bounds the control frequency so the tick period stays positive.
const MaxHz = 1000

// Controller owns a kernel and serializes every input onto its loop goroutine.
type Controller struct {
	kernel   *kernel.Kernel
	sources  map[kernel.Hand]Source
	measures map[kernel.Hand]*measure.Machine
	hz       int
	logger   *zap.Logger
	session  string

	mu      sync.RWMutex
	running bool
	stateCh chan State
	logCh   chan string
	cmdCh   chan func(*kernel.Kernel)
}

// Config holds configuration for the controller.
type Config struct {
	Sources map[kernel.Hand]Source
	Kernel  kernel.Config
	Hz      int
	Logger  *zap.Logger
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	for _, h := range kernel.Hands() {
		if cfg.Sources[h] == nil {
			return nil, fmt.Errorf("no source for %s hand", h)
		}
	}

	k, err := kernel.New(cfg.Kernel)
	if err != nil {
		return nil, err
	}

	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Hz > MaxHz {
		cfg.Hz = MaxHz
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	session := uuid.NewString()
	measures := make(map[kernel.Hand]*measure.Machine, 2)
	for _, h := range kernel.Hands() {
		measures[h] = &measure.Machine{}
	}

	return &Controller{
		kernel:   k,
		sources:  cfg.Sources,
		measures: measures,
		hz:       cfg.Hz,
		logger:   cfg.Logger.With(zap.String("session", session)),
		session:  session,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
		cmdCh:    make(chan func(*kernel.Kernel), 32),
	}, nil
}

// Close closes the controller and releases its sources.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	for _, h := range kernel.Hands() {
		if err := c.sources[h].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h, err))
		}
	}
	return errors.Join(errs...)
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Session returns the id attached to this controller's log records.
func (c *Controller) Session() string {
	return c.session
}

// SetClutch queues a clutch change for the loop.
func (c *Controller) SetClutch(on bool) {
	c.enqueue("clutch", func(k *kernel.Kernel) { k.SetClutch(on) })
}

// ToggleClutch queues a clutch flip for the loop.
func (c *Controller) ToggleClutch() {
	c.enqueue("clutch", func(k *kernel.Kernel) { k.SetClutch(!k.Clutched()) })
}

// SetCameraMode queues a camera mode change for the loop.
func (c *Controller) SetCameraMode(on bool) {
	c.enqueue("camera mode", func(k *kernel.Kernel) { k.SetCameraMode(on) })
}

// ToggleCameraMode queues a camera mode flip for the loop.
func (c *Controller) ToggleCameraMode() {
	c.enqueue("camera mode", func(k *kernel.Kernel) { k.SetCameraMode(!k.CameraMode()) })
}

// Reset requests a camera and cursor reset at the next tick.
func (c *Controller) Reset() {
	c.enqueue("reset", func(k *kernel.Kernel) { k.RequestReset() })
}

func (c *Controller) enqueue(name string, cmd func(*kernel.Kernel)) {
	select {
	case c.cmdCh <- cmd:
	default:
		c.log("Command queue full, dropped %s", name)
		c.logger.Warn("command dropped", zap.String("command", name))
	}
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	// Master arms must be passive so the operator can move them.
	for _, h := range kernel.Hands() {
		d, ok := c.sources[h].(disabler)
		if !ok {
			continue
		}
		if err := d.Disable(ctx); err != nil {
			c.log("Warning: failed to disable %s arm: %v", h, err)
			c.logger.Warn("disable torque", zap.String("hand", string(h)), zap.Error(err))
		} else {
			c.log("%s arm: torque disabled (passive mode)", h)
		}
	}

	c.log("Teleoperation started at %d Hz", c.hz)
	c.logger.Info("teleoperation started", zap.Int("hz", c.hz))

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case cmd := <-c.cmdCh:
			cmd(c.kernel)
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	now := time.Now()
	in := kernel.Input{Samples: make(map[kernel.Hand]kernel.Sample, 2), At: now}

	var errs []error
	for _, h := range kernel.Hands() {
		s, err := c.sources[h].Sample(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h, err))
			continue
		}
		in.Samples[h] = s
	}
	err := errors.Join(errs...)
	if err != nil {
		c.log("Read error: %v", err)
		c.logger.Debug("read sample", zap.Error(err))
	}

	out := c.kernel.Tick(in)
	for _, h := range kernel.Hands() {
		if out.Stale[h] {
			c.logger.Debug("stale stream", zap.String("hand", string(h)))
		}
	}

	c.sendState(State{
		Output:       out,
		Measurements: c.measure(out),
		Timestamp:    now,
		Error:        err,
	})
}

// measure feeds grip codes to the measurement machines. Measurements only
// run while the cursors are live.
func (c *Controller) measure(out kernel.Output) map[kernel.Hand]Measurement {
	res := make(map[kernel.Hand]Measurement, 2)
	for _, h := range kernel.Hands() {
		m := c.measures[h]
		switch {
		case out.Clutched || out.CameraMode:
			m.Reset()
		default:
			if g := out.Grips[h]; g == kernel.GripGrab || g == kernel.GripRelease {
				c.logger.Info("grip", zap.String("hand", string(h)), zap.Stringer("transition", g), zap.Uint64("tick", out.Tick))
			}
			if m.Step(out.Grips[h], out.Cursors[h].Position) {
				r, _ := m.Last()
				c.log("%s measurement: %.3f", h, r.Distance)
				c.logger.Info("measurement", zap.String("hand", string(h)), zap.Float64("distance", r.Distance))
			}
		}

		var mm Measurement
		mm.State = m.State()
		if r, ok := m.Current(); ok {
			mm.Current = &r
		}
		if r, ok := m.Last(); ok {
			mm.Last = &r
		}
		res[h] = mm
	}
	return res
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.log("Teleoperation stopped")
	c.logger.Info("teleoperation stopped")
}
