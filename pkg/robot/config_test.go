package robot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gwillem/rvinci/pkg/kernel"
)

var zeroTime time.Time

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	cfg := DefaultConfig()
	cfg.Left.Port = "/dev/ttyACM0"
	cfg.Left.Calibration = Calibration{Gripper: MotorCalibration{ID: 6, RangeMin: 1, RangeMax: 2}}
	cfg.Kernel.Scale = kernel.Vec3{2, 3, 4}
	cfg.Kernel.StaleAfter = 250 * time.Millisecond

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if !ConfigExists(path) {
		t.Fatal("ConfigExists returned false after save")
	}

	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if got.Left.Port != "/dev/ttyACM0" {
		t.Errorf("left port = %q", got.Left.Port)
	}
	if got.Kernel.Scale != (kernel.Vec3{2, 3, 4}) {
		t.Errorf("scale = %v", got.Kernel.Scale)
	}
	if got.Kernel.StaleAfter != 250*time.Millisecond {
		t.Errorf("stale after = %v", got.Kernel.StaleAfter)
	}
	if got.Left.Calibration[Gripper].ID != 6 {
		t.Errorf("calibration not restored: %+v", got.Left.Calibration)
	}
}

func TestConfig_LoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"left": {"port": "a"}, "right": {"port": "b"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Kernel != kernel.DefaultConfig() {
		t.Errorf("kernel = %+v, want defaults", cfg.Kernel)
	}
	if cfg.Right.Port != "b" {
		t.Errorf("right port = %q", cfg.Right.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	cal := Calibration{ShoulderPan: MotorCalibration{ID: 1}}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing ports")
	}

	cfg.Left.Port, cfg.Right.Port = "a", "b"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing calibration")
	}

	cfg.Left.Calibration, cfg.Right.Calibration = cal, cal
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Kernel.Scale[0] = 0
	if err := cfg.Validate(); !errors.Is(err, kernel.ErrInvalidScale) {
		t.Errorf("got %v, want ErrInvalidScale", err)
	}
}

func TestConfig_Arm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arm(kernel.Left).Port = "left"
	cfg.Arm(kernel.Right).Port = "right"

	if cfg.Left.Port != "left" || cfg.Right.Port != "right" {
		t.Errorf("Arm did not address the right fields: %+v / %+v", cfg.Left, cfg.Right)
	}
}
