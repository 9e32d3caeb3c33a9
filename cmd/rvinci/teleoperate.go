package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rvinci/pkg/kernel"
	"github.com/gwillem/rvinci/pkg/robot"
	"github.com/gwillem/rvinci/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz       int    `long:"hz" env:"RVINCI_HZ" default:"60" description:"Control loop frequency"`
	Simulate bool   `long:"simulate" description:"Use simulated master arms instead of hardware"`
	Seed     int64  `long:"seed" default:"1" description:"Random seed for simulated master arms"`
	LogFile  string `long:"log-file" env:"RVINCI_LOG_FILE" default:"rvinci.log" description:"Structured log output"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 6 // console status box
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	chartRange   = 2 // cursor axis range shown, in scene units
)

// series is one charted cursor coordinate.
type series struct {
	name  string
	hand  kernel.Hand
	axis  int
	color string
}

var chartSeries = []series{
	{"left.x", kernel.Left, 0, "196"},
	{"left.y", kernel.Left, 1, "208"},
	{"left.z", kernel.Left, 2, "226"},
	{"right.x", kernel.Right, 0, "46"},
	{"right.y", kernel.Right, 1, "51"},
	{"right.z", kernel.Right, 2, "201"},
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	staleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type teleopModel struct {
	ctrl        *teleop.Controller
	chart       *streamlinechart.Model
	width       int // terminal width
	height      int // terminal height
	logs        []string
	quitting    bool
	state       teleop.State
	lastCursors map[kernel.Hand]kernel.Cursor // freeze the chart while cursors are idle
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any cursor moved since the last charted state
func (m *teleopModel) hasMovement(cursors map[kernel.Hand]kernel.Cursor) bool {
	if m.lastCursors == nil {
		return true
	}
	for h, c := range cursors {
		if last, ok := m.lastCursors[h]; !ok || last.Position != c.Position {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-chartRange, chartRange),
	)

	for _, s := range chartSeries {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color))
		chart.SetDataSetStyles(s.name, runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.ctrl.ToggleCameraMode()
		case " ":
			m.ctrl.ToggleClutch()
		case "r":
			m.ctrl.Reset()
		}

	case stateMsg:
		m.state = teleop.State(msg)
		cursors := m.state.Output.Cursors
		if cursors != nil && m.hasMovement(cursors) {
			for _, s := range chartSeries {
				m.chart.PushDataSet(s.name, cursors[s.hand].Position[s.axis])
			}
			m.chart.DrawAll()
			m.lastCursors = cursors
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("rvinci Console"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("c: camera mode  space: clutch  r: reset  q: quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderStatus() string {
	out := m.state.Output
	flag := func(name string, on bool) string {
		if on {
			return activeStyle.Render(strings.ToUpper(name))
		}
		return statusStyle.Render(name)
	}

	var lines []string
	lines = append(lines, flag("camera", out.CameraMode)+"  "+flag("clutch", out.Clutched))

	cam := out.Camera
	lines = append(lines, fmt.Sprintf("camera  pos %s  angle %.1f°",
		fmtVec(cam.Position), kernel.RotationAngle(cam.Orientation)*180/math.Pi))

	for _, h := range kernel.Hands() {
		line := fmt.Sprintf("%-6s cursor %s  grip %-7s", h, fmtVec(out.Cursors[h].Position), out.Grips[h])
		if meas, ok := m.state.Measurements[h]; ok {
			switch {
			case meas.Current != nil:
				line += fmt.Sprintf("  measuring %.3f", meas.Current.Distance)
			case meas.Last != nil:
				line += fmt.Sprintf("  measured %.3f", meas.Last.Distance)
			}
		}
		if out.Stale[h] {
			line += "  " + staleStyle.Render("STALE")
		}
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(strings.Join(lines, "\n"))
}

func fmtVec(v kernel.Vec3) string {
	return fmt.Sprintf("(%+.3f, %+.3f, %+.3f)", v[0], v[1], v[2])
}

func renderLegend() string {
	var items []string
	for _, s := range chartSeries {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color)).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+s.name)
	}
	return strings.Join(items, "  ")
}

// newLogger writes JSON records to path so they stay out of the TUI.
func newLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableCaller = true
	return cfg.Build()
}

func (c *TeleoperateCommand) sources(cfg *robot.Config) (map[kernel.Hand]teleop.Source, error) {
	sources := make(map[kernel.Hand]teleop.Source, 2)

	if c.Simulate {
		for i, h := range kernel.Hands() {
			home := cfg.Arm(h).Mount.Add(kernel.Vec3{0, 0.25, 0.1})
			sources[h] = teleop.NewSimSource(home, c.Seed+int64(i))
		}
		return sources, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'rvinci setup' first)", err)
	}
	for _, h := range kernel.Hands() {
		arm, err := robot.NewArm(*cfg.Arm(h))
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return nil, fmt.Errorf("open %s master: %w", h, err)
		}
		sources[h] = arm
	}
	return sources, nil
}

// startController runs ctrl in the background. The returned stop cancels the
// loop and blocks until it has returned.
func startController(ctrl *teleop.Controller, logger *zap.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("controller stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		loaded, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Printf("Loaded configuration from %s\n", opts.Config)
	} else if !c.Simulate {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'rvinci setup' first, or use --simulate.")
		os.Exit(1)
	}

	logger, err := newLogger(c.LogFile)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Sync()

	sources, err := c.sources(cfg)
	if err != nil {
		return err
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Sources: sources,
		Kernel:  cfg.Kernel,
		Hz:      c.Hz,
		Logger:  logger,
	})
	if err != nil {
		for _, s := range sources {
			s.Close()
		}
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()

	// Runs before ctrl.Close so no tick reads from a closed bus.
	stop := startController(ctrl, logger)
	defer stop()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}

	return nil
}
