package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" env:"RVINCI_CONFIG" default:"rvinci.json" description:"Console configuration file"`

	Setup       SetupCommand       `command:"setup" description:"Scan for master arms and calibrate them"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive cursors and camera from the master arms"`
	Replay      ReplayCommand      `command:"replay" description:"Replay a scripted console session"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "rvinci - dual-arm master console for stereo scene teleoperation"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
