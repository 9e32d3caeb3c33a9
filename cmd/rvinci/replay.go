package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/gwillem/rvinci/pkg/kernel"
	"github.com/gwillem/rvinci/pkg/scenario"
)

type ReplayCommand struct {
	Plot  bool `long:"plot" description:"Plot camera and cursor trajectories"`
	Every int  `long:"every" default:"1" description:"Print every Nth tick"`

	Args struct {
		Scenario string `positional-arg-name:"scenario" description:"YAML scenario file"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ReplayCommand) Execute(args []string) error {
	s, err := scenario.Load(c.Args.Scenario)
	if err != nil {
		return err
	}

	outputs, err := s.Run()
	if err != nil {
		return fmt.Errorf("replay %s: %w", c.Args.Scenario, err)
	}

	name := s.Name
	if name == "" {
		name = c.Args.Scenario
	}
	fmt.Println(headerStyle.Render("Replay: " + name))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d ticks", len(outputs))))
	fmt.Println()
	fmt.Println(renderOutputs(outputs, c.Every))

	if c.Plot {
		fmt.Println()
		for _, p := range trajectoryPlots(outputs) {
			fmt.Println(p)
			fmt.Println()
		}
	}

	return nil
}

func renderOutputs(outputs []kernel.Output, every int) string {
	if every <= 0 {
		every = 1
	}

	mode := func(o kernel.Output) string {
		switch {
		case o.Clutched:
			return "clutch"
		case o.CameraMode:
			return "camera"
		default:
			return "cursor"
		}
	}

	var rows [][]string
	for i, o := range outputs {
		if i%every != 0 && i != len(outputs)-1 {
			continue
		}
		rows = append(rows, []string{
			strconv.FormatUint(o.Tick, 10),
			mode(o),
			fmtVec(o.Cursors[kernel.Left].Position),
			o.Grips[kernel.Left].String(),
			fmtVec(o.Cursors[kernel.Right].Position),
			o.Grips[kernel.Right].String(),
			fmtVec(o.Camera.Position),
			fmt.Sprintf("%.2f", kernel.RotationAngle(o.Camera.Orientation)),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Tick", "Mode", "Left cursor", "Grip", "Right cursor", "Grip", "Camera", "Rot").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true).Foreground(lipgloss.Color("12"))
			}
			return cell
		}).
		Render()
}

func trajectoryPlots(outputs []kernel.Output) []string {
	if len(outputs) < 2 {
		return nil
	}

	type trace struct {
		caption string
		value   func(kernel.Output) float64
	}
	traces := []trace{
		{"camera x", func(o kernel.Output) float64 { return o.Camera.Position[0] }},
		{"camera y", func(o kernel.Output) float64 { return o.Camera.Position[1] }},
		{"camera z", func(o kernel.Output) float64 { return o.Camera.Position[2] }},
		{"camera rotation (rad)", func(o kernel.Output) float64 { return kernel.RotationAngle(o.Camera.Orientation) }},
		{"left cursor x", func(o kernel.Output) float64 { return o.Cursors[kernel.Left].Position[0] }},
		{"right cursor x", func(o kernel.Output) float64 { return o.Cursors[kernel.Right].Position[0] }},
	}

	plots := make([]string, 0, len(traces))
	for _, t := range traces {
		data := make([]float64, len(outputs))
		for i, o := range outputs {
			data[i] = t.value(o)
		}
		plots = append(plots, asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(t.caption),
		))
	}
	return plots
}
