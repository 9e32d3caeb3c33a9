// Package scenario replays scripted master console sessions through the
// kernel.
package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/rvinci/pkg/kernel"
)

const DefaultPeriod = 10 * time.Millisecond

// Pose is one scripted manipulator reading.
type Pose struct {
	Position [3]float64 `yaml:"position"`
	// Orientation is w, x, y, z. All zeros means identity.
	Orientation [4]float64 `yaml:"orientation,omitempty"`
	// Grasp defaults to released.
	Grasp *bool `yaml:"grasp,omitempty"`
}

// Step is one or more identical ticks.
type Step struct {
	Left   *Pose `yaml:"left,omitempty"`
	Right  *Pose `yaml:"right,omitempty"`
	Clutch bool  `yaml:"clutch,omitempty"`
	Camera bool  `yaml:"camera,omitempty"`
	Reset  bool  `yaml:"reset,omitempty"`
	Repeat int   `yaml:"repeat,omitempty"`
}

// Scenario is a scripted session.
type Scenario struct {
	Name   string         `yaml:"name"`
	Period time.Duration  `yaml:"period,omitempty"`
	Config *kernel.Config `yaml:"config,omitempty"`
	Steps  []Step         `yaml:"steps"`
}

// UnmarshalYAML decodes a scenario. Settings missing from a config block
// keep their defaults.
func (s *Scenario) UnmarshalYAML(value *yaml.Node) error {
	type plain Scenario
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}

	if p.Config != nil && value.Kind == yaml.MappingNode {
		cfg := kernel.DefaultConfig()
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value != "config" {
				continue
			}
			if err := value.Content[i+1].Decode(&cfg); err != nil {
				return err
			}
		}
		p.Config = &cfg
	}

	*s = Scenario(p)
	return nil
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", s.Name)
	}
	return &s, nil
}

// KernelConfig returns the scenario's kernel settings, falling back to the
// defaults.
func (s *Scenario) KernelConfig() kernel.Config {
	if s.Config != nil {
		return *s.Config
	}
	return kernel.DefaultConfig()
}

// Run replays the scenario through a fresh kernel and returns one output
// per tick.
func (s *Scenario) Run() ([]kernel.Output, error) {
	k, err := kernel.New(s.KernelConfig())
	if err != nil {
		return nil, err
	}

	period := s.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	now := time.Unix(0, 0)

	var outputs []kernel.Output
	for _, step := range s.Steps {
		n := step.Repeat
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			k.SetClutch(step.Clutch)
			k.SetCameraMode(step.Camera)
			if step.Reset && i == 0 {
				k.RequestReset()
			}
			now = now.Add(period)
			outputs = append(outputs, k.Tick(step.input(now)))
		}
	}
	return outputs, nil
}

func (st Step) input(at time.Time) kernel.Input {
	in := kernel.Input{Samples: make(map[kernel.Hand]kernel.Sample, 2), At: at}
	if st.Left != nil {
		in.Samples[kernel.Left] = st.Left.sample()
	}
	if st.Right != nil {
		in.Samples[kernel.Right] = st.Right.sample()
	}
	return in
}

func (p Pose) sample() kernel.Sample {
	q := mgl64.QuatIdent()
	if p.Orientation != [4]float64{} {
		q = mgl64.Quat{W: p.Orientation[0], V: mgl64.Vec3{p.Orientation[1], p.Orientation[2], p.Orientation[3]}}
	}
	grasp := true
	if p.Grasp != nil {
		grasp = *p.Grasp
	}
	return kernel.Sample{
		Position:    p.Position,
		Orientation: q,
		Grasp:       grasp,
	}
}
