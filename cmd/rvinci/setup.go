package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/rvinci/pkg/kernel"
	"github.com/gwillem/rvinci/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("rvinci Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Keep kernel tuning and mounts from an earlier setup.
	config := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		existing, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return err
		}
		config = existing
	}

	ports, err := scanForArms()
	if err != nil {
		return err
	}

	for _, h := range kernel.Hands() {
		arm := config.Arm(h)
		arm.Port = ports[h]

		fmt.Println()
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Calibrating %s Master ━━━", title(string(h)))))
		fmt.Println()
		cal, err := calibrateArm(arm.Port, string(h))
		if err != nil {
			return err
		}
		arm.Calibration = cal

		// Save after each arm so a crash keeps finished work
		if err := config.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the console with: " + headerStyle.Render("rvinci teleoperate"))

	return nil
}

func scanForArms() (map[kernel.Hand]string, error) {
	fmt.Println("Scanning for master arms...")
	fmt.Println()

	arms := findArms()
	if len(arms) == 0 {
		return nil, fmt.Errorf("no SO-101 arms found; make sure both masters are connected and powered on")
	}

	fmt.Printf("Found %d arm(s). Let's identify them...\n\n", len(arms))

	ports := make(map[kernel.Hand]string, 2)
	for _, arm := range arms {
		var missing []kernel.Hand
		for _, h := range kernel.Hands() {
			if ports[h] == "" {
				missing = append(missing, h)
			}
		}
		if len(missing) == 0 {
			arm.bus.Close()
			continue
		}

		if h, ok := identifyArmWithWiggle(arm, missing); ok {
			ports[h] = arm.port
		}
	}

	fmt.Println()
	for _, h := range kernel.Hands() {
		if ports[h] == "" {
			return nil, fmt.Errorf("%s master not identified; both masters are required", h)
		}
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Masters identified:"))
	fmt.Printf("  Left:  %s\n", ports[kernel.Left])
	fmt.Printf("  Right: %s\n", ports[kernel.Right])

	return ports, nil
}

func calibrateArm(port, name string) (robot.Calibration, error) {
	fmt.Printf("Calibrating %s master on %s\n", name, port)
	fmt.Println()

	bus, servos, err := connectToArm(port)
	if err != nil {
		return nil, fmt.Errorf("connect to %s master: %w", name, err)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Masters are always passive
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	motors := robot.AllMotors()

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions,")
	fmt.Println("then open and pinch the gripper fully.")
	fmt.Println()

	model := newCalibrationModel(motors, servoMap)
	for i, motorName := range motors {
		pos, _ := servoMap[i+1].Position(ctx)
		model.cur[motorName] = pos
		model.min[motorName] = pos
		model.max[motorName] = pos
	}

	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)

	calibration := make(robot.Calibration, len(motors))
	for i, motorName := range motors {
		calibration[motorName] = robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.min[motorName],
			RangeMax: cm.max[motorName],
		}
	}

	fmt.Println()
	fmt.Printf("%s master calibrated.\n", title(name))
	return calibration, nil
}

// title upper-cases the first letter of an ASCII name.
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []armInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := connectToArm(port)
		if err != nil {
			continue
		}
		fmt.Printf("  Found SO-101 arm on %s\n", port)
		arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
	}

	return arms
}

// isSOArm reports whether servos are exactly IDs 1-6.
func isSOArm(servos []feetech.FoundServo) bool {
	if len(servos) != 6 {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= 6; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

// identifyArmWithWiggle nudges the shoulder pan servo and asks which master moved.
func identifyArmWithWiggle(arm armInfo, missing []kernel.Hand) (kernel.Hand, bool) {
	defer arm.bus.Close()

	ctx := context.Background()

	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return "", false
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return "", false
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return "", false
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)

	const wiggleAmount = 30
	const moveTimeMs = 500
	for _, target := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, target, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	// Hand the arm back to the operator
	servo.Disable(ctx)

	var options []huh.Option[string]
	for _, h := range missing {
		options = append(options, huh.NewOption(fmt.Sprintf("%s master", title(string(h))), string(h)))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which master is on %s?", arm.port)).
				Description("The arm that just wiggled").
				Options(options...).
				Value(&role),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if role == "skip" {
		return "", false
	}
	return kernel.Hand(role), true
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	// SO-101 arms use servo IDs 1-6
	servos, err := bus.Scan(ctx, 1, 6)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isSOArm(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("not an SO-101 arm (expected 6 servos with IDs 1-6)")
	}

	return bus, servos, nil
}

// calibrationModel tracks joint extremes while the operator moves a master.
type calibrationModel struct {
	motors   []robot.MotorName
	servoMap map[int]*feetech.Servo
	cur      map[robot.MotorName]int
	min      map[robot.MotorName]int
	max      map[robot.MotorName]int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(motors []robot.MotorName, servoMap map[int]*feetech.Servo) calibrationModel {
	return calibrationModel{
		motors:   motors,
		servoMap: servoMap,
		cur:      make(map[robot.MotorName]int, len(motors)),
		min:      make(map[robot.MotorName]int, len(motors)),
		max:      make(map[robot.MotorName]int, len(motors)),
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return pollTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, motorName := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.cur[motorName] = pos
			if pos < m.min[motorName] {
				m.min[motorName] = pos
			}
			if pos > m.max[motorName] {
				m.max[motorName] = pos
			}
		}
		return m, pollTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	motorCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	plainCell := lipgloss.NewStyle().Padding(0, 1)
	currentCell := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	goodCell := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	lowCell := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, motorName := range m.motors {
		span := m.max[motorName] - m.min[motorName]
		ranges = append(ranges, span)
		rows = append(rows, []string{
			string(motorName),
			fmt.Sprintf("%d", m.cur[motorName]),
			fmt.Sprintf("%d", m.min[motorName]),
			fmt.Sprintf("%d", m.max[motorName]),
			fmt.Sprintf("%d", span),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			switch col {
			case 0:
				return motorCell
			case 1:
				return currentCell
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return goodCell
				}
				return lowCell
			default:
				return plainCell
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
