package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/standalone"
	"atcguard/standalone/limits"
)

type fakePlanner struct {
	pos   standalone.Position
	moves []*standalone.Move
}

func (f *fakePlanner) QueueMove(move *standalone.Move) (bool, error) {
	move.Start = f.pos
	f.moves = append(f.moves, move)
	f.pos = move.End
	return true, nil
}

func (f *fakePlanner) Position() standalone.Position     { return f.pos }
func (f *fakePlanner) SetPosition(pos standalone.Position) { f.pos = pos }
func (f *fakePlanner) ClearQueue()                         { f.moves = nil }

type toolLog struct {
	events []string
}

func (l *toolLog) ToolSelected(tool int) { l.events = append(l.events, "select") }
func (l *toolLog) ToolChanged(tool int)  { l.events = append(l.events, "change") }

func newInterp(jog *limits.CheckChain) (*Interpreter, *fakePlanner) {
	cfg := &standalone.MachineConfig{
		Axes: map[string]standalone.AxisConfig{
			"x": {MaxVelocity: 150},
			"y": {MaxVelocity: 120},
		},
		DefaultVelocity: 25,
		DefaultAccel:    400,
	}
	p := &fakePlanner{}
	return NewInterpreter(cfg, p, jog, nil), p
}

func TestMovesAbsoluteAndRelative(t *testing.T) {
	interp, p := newInterp(nil)

	_, err := interp.ExecuteLine("G1 X10 Y5 F600")
	require.NoError(t, err)
	_, err = interp.ExecuteLine("G91 G1 X2 A90")
	require.NoError(t, err)

	require.Len(t, p.moves, 2)
	assert.Equal(t, 10.0, p.moves[0].Velocity)
	assert.Equal(t, 400.0, p.moves[0].Accel)
	assert.Equal(t, standalone.Position{X: 12, Y: 5, A: 90}, p.pos)
	assert.False(t, interp.GetState().AbsoluteMode)
}

func TestRapidUsesFastestAxis(t *testing.T) {
	interp, p := newInterp(nil)

	_, err := interp.ExecuteLine("G0 X1")
	require.NoError(t, err)
	require.Len(t, p.moves, 1)
	assert.True(t, p.moves[0].Rapid)
	assert.Equal(t, 150.0, p.moves[0].Velocity)
}

func TestNoMoveForSamePosition(t *testing.T) {
	interp, p := newInterp(nil)
	_, err := interp.ExecuteLine("G1 X0 Y0")
	require.NoError(t, err)
	assert.Empty(t, p.moves)
}

func TestUnsupportedCodes(t *testing.T) {
	interp, _ := newInterp(nil)

	_, err := interp.ExecuteLine("G2 X1")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = interp.ExecuteLine("M999")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestHomeAndSetPosition(t *testing.T) {
	interp, p := newInterp(nil)
	p.pos = standalone.Position{X: 5, Y: 6, Z: 7}

	_, err := interp.ExecuteLine("G28 X0")
	require.NoError(t, err)
	assert.Equal(t, standalone.Position{Y: 6, Z: 7}, p.pos)
	assert.Equal(t, [4]bool{true, false, false, false}, interp.GetState().Homed)

	_, err = interp.ExecuteLine("G92 Y100")
	require.NoError(t, err)
	assert.Equal(t, standalone.Position{Y: 100, Z: 7}, p.pos)
}

func TestToolChangeNotifiesObservers(t *testing.T) {
	interp, _ := newInterp(nil)
	log := &toolLog{}
	interp.ObserveTools(log)

	_, err := interp.ExecuteLine("M6 T4")
	require.NoError(t, err)

	assert.Equal(t, []string{"select", "change"}, log.events)
	assert.Equal(t, 4, interp.GetState().Tool)
}

func TestUserMCode(t *testing.T) {
	interp, _ := newInterp(nil)

	var got float64
	interp.HandleMCode(960, func(cmd *standalone.GCodeCommand, state *standalone.MachineState) (string, error) {
		got = cmd.GetParameter('P', -1)
		return "handled", nil
	})

	msgs, err := interp.ExecuteLine("M960 P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"handled"}, msgs)
	assert.Equal(t, 1.0, got)
}

func TestM114ReportsPosition(t *testing.T) {
	interp, p := newInterp(nil)
	p.pos = standalone.Position{X: 1.5, Y: -2}

	msgs, err := interp.ExecuteLine("M114")
	require.NoError(t, err)
	assert.Equal(t, []string{"X:1.500 Y:-2.000 Z:0.000 A:0.000"}, msgs)
}

func TestCheckModeSkipsMotionAndTools(t *testing.T) {
	interp, p := newInterp(nil)
	log := &toolLog{}
	interp.ObserveTools(log)
	interp.SetCheckMode(true)

	_, err := interp.ExecuteLine("G1 X10 F100")
	require.NoError(t, err)
	_, err = interp.ExecuteLine("T2 M6")
	require.NoError(t, err)
	require.NoError(t, interp.Jog("G91 X5 F100"))

	assert.Empty(t, p.moves)
	assert.Empty(t, log.events)
	assert.Equal(t, 0, interp.GetState().Tool)
}

func TestJogAdmittedByChain(t *testing.T) {
	var chain limits.CheckChain
	var seen []standalone.Position
	chain.Push(limits.CheckerFunc(func(start, target standalone.Position, next limits.CheckFunc) bool {
		seen = append(seen, start, target)
		return next(start, target)
	}))
	interp, p := newInterp(&chain)
	p.pos = standalone.Position{X: 1, Y: 1}

	require.NoError(t, interp.Jog("G91 X10 F1200"))

	require.Len(t, p.moves, 1)
	assert.Equal(t, 20.0, p.moves[0].Velocity)
	assert.Equal(t, []standalone.Position{{X: 1, Y: 1}, {X: 11, Y: 1}}, seen)
	assert.True(t, interp.GetState().AbsoluteMode, "jog mode does not leak into modal state")
}

func TestJogVetoed(t *testing.T) {
	var chain limits.CheckChain
	chain.Push(limits.CheckerFunc(func(start, target standalone.Position, next limits.CheckFunc) bool {
		return false
	}))
	interp, p := newInterp(&chain)

	assert.ErrorIs(t, interp.Jog("X10 Y10 F500"), ErrJogBlocked)
	assert.Empty(t, p.moves)
}

func TestJogValidation(t *testing.T) {
	interp, _ := newInterp(nil)

	assert.ErrorIs(t, interp.Jog("X10"), ErrInvalidJog)
	assert.ErrorIs(t, interp.Jog("G0 X10 F100"), ErrInvalidJog)
	assert.ErrorIs(t, interp.Jog("X10 F0"), ErrInvalidJog)
	assert.ErrorIs(t, interp.Jog("X10 F"), ErrBadNumber)
}
