package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gwillem/rvinci/pkg/kernel"
)

const DefaultConfigFile = "rvinci.json"

// DefaultGripperClosed is the normalized gripper position below which the
// gripper reads as pinched.
const DefaultGripperClosed = -50.0

// Config holds the master console configuration
type Config struct {
	Left   ArmConfig     `json:"left"`
	Right  ArmConfig     `json:"right"`
	Kernel kernel.Config `json:"kernel"`
}

// ArmConfig holds configuration for a single master arm
type ArmConfig struct {
	Port string `json:"port"`
	// Mount is the arm base position in the console frame.
	Mount kernel.Vec3 `json:"mount"`
	// Yaw rotates the arm base about the console Z axis, in radians.
	Yaw           float64     `json:"yaw"`
	GripperClosed float64     `json:"gripper_closed"`
	Calibration   Calibration `json:"calibration,omitempty"`
}

// DefaultConfig returns a console with both arms facing away from the
// operator, 40 cm apart.
func DefaultConfig() *Config {
	return &Config{
		Left: ArmConfig{
			Mount:         kernel.Vec3{-0.2, 0, 0},
			Yaw:           math.Pi / 2,
			GripperClosed: DefaultGripperClosed,
		},
		Right: ArmConfig{
			Mount:         kernel.Vec3{0.2, 0, 0},
			Yaw:           math.Pi / 2,
			GripperClosed: DefaultGripperClosed,
		},
		Kernel: kernel.DefaultConfig(),
	}
}

// Arm returns the configuration of one hand's arm.
func (c *Config) Arm(h kernel.Hand) *ArmConfig {
	if h == kernel.Left {
		return &c.Left
	}
	return &c.Right
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// Validate checks that both arms are set up and the kernel settings are usable.
func (c *Config) Validate() error {
	for _, h := range kernel.Hands() {
		arm := c.Arm(h)
		if arm.Port == "" {
			return fmt.Errorf("%s arm: no port configured", h)
		}
		if !arm.IsCalibrated() {
			return fmt.Errorf("%s arm: not calibrated", h)
		}
	}
	if err := c.Kernel.Validate(); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Settings missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
