package kernel

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidScale      = errors.New("scale components must be positive")
	ErrInvalidSeparation = errors.New("stereo separation must not be negative")
	ErrInvalidStaleAfter = errors.New("stale-after must not be negative")
)

// Config holds the kernel settings. It is read once at construction and
// survives resets.
type Config struct {
	// Scale multiplies raw manipulator positions per axis.
	Scale Vec3 `json:"scale" yaml:"scale"`
	// CameraOffset is the midpoint of the two eyes relative to the camera node.
	CameraOffset Vec3 `json:"camera_offset" yaml:"camera_offset"`
	// StereoSeparation is the distance between the two eyes.
	StereoSeparation float64 `json:"stereo_separation" yaml:"stereo_separation"`
	// CursorSpread is the distance of each cursor's home from the origin along X.
	CursorSpread float64 `json:"cursor_spread" yaml:"cursor_spread"`
	// StaleAfter marks a hand stale when no sample arrived for this long.
	// Zero disables staleness detection.
	StaleAfter time.Duration `json:"stale_after,omitempty" yaml:"stale_after"`
}

// DefaultConfig returns the settings of the da Vinci console setup.
func DefaultConfig() Config {
	return Config{
		Scale:            Vec3{5, 5, 5},
		CameraOffset:     Vec3{0, -3, 1.5},
		StereoSeparation: 0.06,
		CursorSpread:     0.6,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	for i, s := range c.Scale {
		if !(s > 0) {
			return fmt.Errorf("scale[%d] = %v: %w", i, s, ErrInvalidScale)
		}
	}
	if c.StereoSeparation < 0 {
		return fmt.Errorf("separation %v: %w", c.StereoSeparation, ErrInvalidSeparation)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("stale-after %v: %w", c.StaleAfter, ErrInvalidStaleAfter)
	}
	return nil
}
