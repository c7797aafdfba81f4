package gcode

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"atcguard/standalone"
	"atcguard/standalone/limits"
)

var (
	// ErrUnsupported is returned for G and M codes the interpreter does not handle
	ErrUnsupported = errors.New("unsupported command")
	// ErrJogBlocked is returned when the admissibility chain vetoes a jog
	ErrJogBlocked = errors.New("jog blocked")
	// ErrInvalidJog is returned for jog lines that are not a single linear move
	ErrInvalidJog = errors.New("invalid jog command")
)

// Planner interface for motion planning
type Planner interface {
	QueueMove(move *standalone.Move) (bool, error)
	Position() standalone.Position
	SetPosition(pos standalone.Position)
	ClearQueue()
}

// MCodeHandler executes a user M-code and may return a message for the operator
type MCodeHandler func(cmd *standalone.GCodeCommand, state *standalone.MachineState) (string, error)

// ToolObserver is notified when T selects a tool and when M6 completes the change
type ToolObserver interface {
	ToolSelected(tool int)
	ToolChanged(tool int)
}

// Interpreter executes G-code commands
type Interpreter struct {
	state   *standalone.MachineState
	config  *standalone.MachineConfig
	planner Planner
	jog     *limits.CheckChain
	parser  *Parser
	logger  *slog.Logger

	mcodes map[int]MCodeHandler
	tools  []ToolObserver
}

// NewInterpreter creates a new G-code interpreter. Jogs are admitted by jog.
func NewInterpreter(config *standalone.MachineConfig, planner Planner, jog *limits.CheckChain, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if jog == nil {
		jog = &limits.CheckChain{}
	}
	return &Interpreter{
		state: &standalone.MachineState{
			AbsoluteMode: true,
			FeedRate:     config.DefaultVelocity,
		},
		config:  config,
		planner: planner,
		jog:     jog,
		parser:  NewParser(),
		logger:  logger,
		mcodes:  make(map[int]MCodeHandler),
	}
}

// HandleMCode registers fn for M<number>
func (interp *Interpreter) HandleMCode(number int, fn MCodeHandler) {
	interp.mcodes[number] = fn
}

// ObserveTools registers o for tool-change notifications
func (interp *Interpreter) ObserveTools(o ToolObserver) {
	interp.tools = append(interp.tools, o)
}

// SetCheckMode enables or disables check mode. In check mode lines are
// parsed and validated but nothing moves and no tool change runs.
func (interp *Interpreter) SetCheckMode(on bool) {
	interp.state.CheckMode = on
}

// ExecuteLine parses and runs one line. Words run in a fixed order
// regardless of where they appear: tool select, M-codes, modal G-codes, motion.
func (interp *Interpreter) ExecuteLine(line string) ([]string, error) {
	cmds, err := interp.parser.ParseLine(line)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cmds, func(i, j int) bool {
		return executionOrder(cmds[i]) < executionOrder(cmds[j])
	})

	var msgs []string
	for _, cmd := range cmds {
		msg, err := interp.Execute(cmd)
		if msg != "" {
			msgs = append(msgs, msg)
		}
		if err != nil {
			return msgs, err
		}
	}
	return msgs, nil
}

func executionOrder(cmd *standalone.GCodeCommand) int {
	switch {
	case cmd.Type == 'T':
		return 0
	case cmd.Type == 'M':
		return 1
	case cmd.Type == 'G' && (cmd.Number == 0 || cmd.Number == 1):
		return 3
	default:
		return 2
	}
}

// Execute executes a parsed G-code command
func (interp *Interpreter) Execute(cmd *standalone.GCodeCommand) (string, error) {
	if cmd == nil {
		return "", nil
	}

	switch cmd.Type {
	case 'G':
		return "", interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	case 'T':
		interp.executeT(cmd)
	}

	return "", nil
}

// executeG handles G-codes
func (interp *Interpreter) executeG(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Linear move
		return interp.doMove(cmd)
	case 28: // G28 - Home
		return interp.doHome(cmd)
	case 90: // G90 - Absolute positioning
		interp.state.AbsoluteMode = true
	case 91: // G91 - Relative positioning
		interp.state.AbsoluteMode = false
	case 92: // G92 - Set position
		return interp.doSetPosition(cmd)
	case 21: // G21 - Millimeters, the only unit supported
	default:
		return fmt.Errorf("%w: G%d", ErrUnsupported, cmd.Number)
	}

	return nil
}

// executeM handles M-codes
func (interp *Interpreter) executeM(cmd *standalone.GCodeCommand) (string, error) {
	switch cmd.Number {
	case 0, 2, 30: // Program pause/end, nothing buffered to flush
		return "", nil
	case 6: // M6 - Tool change
		interp.executeToolChange()
		return "", nil
	case 114: // M114 - Report position
		pos := interp.planner.Position()
		return fmt.Sprintf("X:%.3f Y:%.3f Z:%.3f A:%.3f", pos.X, pos.Y, pos.Z, pos.A), nil
	}

	if fn, ok := interp.mcodes[cmd.Number]; ok {
		return fn(cmd, interp.state)
	}
	return "", fmt.Errorf("%w: M%d", ErrUnsupported, cmd.Number)
}

// executeT selects the next tool
func (interp *Interpreter) executeT(cmd *standalone.GCodeCommand) {
	interp.state.PendingTool = cmd.Number
	if interp.state.CheckMode {
		return
	}
	interp.logger.Info("tool selected", "tool", cmd.Number)
	for _, o := range interp.tools {
		o.ToolSelected(cmd.Number)
	}
}

// executeToolChange completes the change to the selected tool
func (interp *Interpreter) executeToolChange() {
	if interp.state.CheckMode {
		return
	}
	interp.state.Tool = interp.state.PendingTool
	interp.logger.Info("tool changed", "tool", interp.state.Tool)
	for _, o := range interp.tools {
		o.ToolChanged(interp.state.Tool)
	}
}

// target resolves the X/Y/Z/A words of cmd against current
func target(cmd *standalone.GCodeCommand, current standalone.Position, absolute bool) standalone.Position {
	target := current
	axes := [...]struct {
		letter byte
		value  *float64
		start  float64
	}{
		{'X', &target.X, current.X},
		{'Y', &target.Y, current.Y},
		{'Z', &target.Z, current.Z},
		{'A', &target.A, current.A},
	}
	for _, axis := range axes {
		if !cmd.HasParameter(axis.letter) {
			continue
		}
		v := cmd.GetParameter(axis.letter, 0)
		if absolute {
			*axis.value = v
		} else {
			*axis.value = axis.start + v
		}
	}
	return target
}

// doMove queues a linear move (G0/G1). The planner clips the target.
func (interp *Interpreter) doMove(cmd *standalone.GCodeCommand) error {
	current := interp.planner.Position()

	// Update feedrate if specified
	if cmd.HasParameter('F') {
		interp.state.FeedRate = cmd.GetParameter('F', 0) / 60.0 // Convert mm/min to mm/s
	}

	end := target(cmd, current, interp.state.AbsoluteMode)
	if interp.state.CheckMode || end == current {
		return nil
	}

	move := &standalone.Move{
		End:      end,
		Velocity: interp.state.FeedRate,
		Accel:    interp.config.DefaultAccel,
		Rapid:    cmd.Number == 0,
	}
	if move.Rapid {
		move.Velocity = interp.rapidVelocity()
	}

	_, err := interp.planner.QueueMove(move)
	return err
}

// rapidVelocity is the fastest XY axis velocity, or the default feed
func (interp *Interpreter) rapidVelocity() float64 {
	v := 0.0
	for _, name := range []string{"x", "y"} {
		if axis, ok := interp.config.Axes[name]; ok && axis.MaxVelocity > v {
			v = axis.MaxVelocity
		}
	}
	if v == 0 {
		v = interp.config.DefaultVelocity
	}
	return v
}

// Jog runs the body of a $J= line. The whole move is admitted or refused
// by the jog chain before anything is queued; modal state is not changed.
func (interp *Interpreter) Jog(line string) error {
	cmds, err := interp.parser.ParseLine(line)
	if err != nil {
		return err
	}

	absolute := interp.state.AbsoluteMode
	var words *standalone.GCodeCommand
	for _, cmd := range cmds {
		switch {
		case cmd.Type == 0:
		case cmd.Type == 'G' && cmd.Number == 90:
			absolute = true
		case cmd.Type == 'G' && cmd.Number == 91:
			absolute = false
		case cmd.Type == 'G' && (cmd.Number == 1 || cmd.Number == 21 || cmd.Number == 53):
		default:
			return fmt.Errorf("%w: %c%d", ErrInvalidJog, cmd.Type, cmd.Number)
		}
		words = cmd
	}
	if words == nil || !words.HasParameter('F') {
		return fmt.Errorf("%w: feed rate required", ErrInvalidJog)
	}
	feed := words.GetParameter('F', 0) / 60.0
	if feed <= 0 {
		return fmt.Errorf("%w: feed rate must be positive", ErrInvalidJog)
	}

	start := interp.planner.Position()
	end := target(words, start, absolute)
	if end == start {
		return nil
	}

	if !interp.jog.Check(start, end) {
		interp.logger.Debug("jog refused", "x", end.X, "y", end.Y)
		return ErrJogBlocked
	}
	if interp.state.CheckMode {
		return nil
	}

	_, err = interp.planner.QueueMove(&standalone.Move{
		End:      end,
		Velocity: feed,
		Accel:    interp.config.DefaultAccel,
	})
	return err
}

// doHome executes homing (G28). There are no switches: the named axes are
// marked homed and zeroed.
func (interp *Interpreter) doHome(cmd *standalone.GCodeCommand) error {
	if interp.state.CheckMode {
		return nil
	}

	pos := interp.planner.Position()
	all := !cmd.HasParameter('X') && !cmd.HasParameter('Y') && !cmd.HasParameter('Z')
	if all || cmd.HasParameter('X') {
		interp.state.Homed[0] = true
		pos.X = 0
	}
	if all || cmd.HasParameter('Y') {
		interp.state.Homed[1] = true
		pos.Y = 0
	}
	if all || cmd.HasParameter('Z') {
		interp.state.Homed[2] = true
		pos.Z = 0
	}

	interp.planner.SetPosition(pos)
	return nil
}

// doSetPosition sets the current position (G92)
func (interp *Interpreter) doSetPosition(cmd *standalone.GCodeCommand) error {
	if interp.state.CheckMode {
		return nil
	}
	interp.planner.SetPosition(target(cmd, interp.planner.Position(), true))
	return nil
}

// GetState returns the current machine state
func (interp *Interpreter) GetState() *standalone.MachineState {
	return interp.state
}
