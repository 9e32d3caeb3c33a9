package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/rvinci/pkg/kernel"
)

// Arm is an SO-101 leader arm read as a master manipulator.
type Arm struct {
	bus           *feetech.Bus
	group         *feetech.ServoGroup
	calibration   Calibration
	mount         kernel.Vec3
	base          kernel.Quat
	gripperClosed float64
}

// NewArm opens the arm's serial bus.
func NewArm(cfg ArmConfig) (*Arm, error) {
	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	// Create servo group from calibration IDs
	group := feetech.NewServoGroupByIDs(bus, cfg.Calibration.MotorIDs()...)

	return &Arm{
		bus:           bus,
		group:         group,
		calibration:   cfg.Calibration,
		mount:         cfg.Mount,
		base:          mgl64.QuatRotate(cfg.Yaw, axisZ),
		gripperClosed: cfg.GripperClosed,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Disable disables torque on all servos so the operator can move the arm freely.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadJoints reads joint angles and the normalized gripper position.
func (a *Arm) ReadJoints(ctx context.Context) (Joints, float64, error) {
	// Read raw positions using sync read
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read positions: %w", err)
	}

	joints := make(Joints, len(rawPositions))
	gripper := 100.0
	for id, raw := range rawPositions {
		name, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		if name == Gripper {
			gripper = cal.Normalize(raw)
			continue
		}
		joints[name] = cal.Radians(raw)
	}

	return joints, gripper, nil
}

// Sample reads the arm and returns the gripper tip pose in the console frame.
func (a *Arm) Sample(ctx context.Context) (kernel.Sample, error) {
	joints, gripper, err := a.ReadJoints(ctx)
	if err != nil {
		return kernel.Sample{}, err
	}
	return a.pose(joints, gripper, time.Now()), nil
}

func (a *Arm) pose(j Joints, gripper float64, at time.Time) kernel.Sample {
	p, q := ForwardKinematics(j)
	return kernel.Sample{
		Position:    a.mount.Add(a.base.Rotate(p)),
		Orientation: a.base.Mul(q).Normalize(),
		Grasp:       gripper >= a.gripperClosed,
		At:          at,
	}
}
