// Package rvinci provides a dual-arm master console for steering 3D cursors
// and a stereo camera rig in a virtual scene.
//
// Two SO-101 arms act as master manipulators. Their joint readings are turned
// into end-effector poses, scaled into the scene, and integrated each tick into
// either the cursors or the camera, depending on the operator's mode.
//
// # Installation
//
//	go install github.com/gwillem/rvinci/cmd/rvinci@latest
//
// # Usage
//
// First, run setup to detect and calibrate the master arms:
//
//	rvinci setup
//
// Then start the console:
//
//	rvinci teleoperate
//
// Without hardware, the console runs against simulated masters:
//
//	rvinci teleoperate --simulate
//
// Scripted sessions can be replayed and plotted:
//
//	rvinci replay --plot session.yaml
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/rvinci: CLI with setup, teleoperate and replay commands
//   - pkg/kernel: Per-tick cursor, grip and camera state machine
//   - pkg/measure: Grip driven distance measurement
//   - pkg/scenario: YAML scripted sessions for the kernel
//   - pkg/robot: Arm access, calibration, kinematics and configuration
//   - pkg/teleop: Console control loop
package rvinci
