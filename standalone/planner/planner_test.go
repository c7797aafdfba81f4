package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/core"
	"atcguard/standalone"
	"atcguard/standalone/kinematics"
	"atcguard/standalone/limits"
)

func newTestPlanner(t *testing.T, clip *limits.ClipChain) (*Planner, *core.Scheduler) {
	t.Helper()
	cfg := &standalone.MachineConfig{
		Axes: map[string]standalone.AxisConfig{
			"x": {MaxVelocity: 100, MinPosition: -500, MaxPosition: 500},
			"y": {MaxVelocity: 100, MinPosition: -500, MaxPosition: 500},
			"z": {MaxVelocity: 10, MinPosition: -100, MaxPosition: 100},
		},
	}
	kin, err := kinematics.NewCartesian(cfg)
	require.NoError(t, err)
	sched := core.NewScheduler()
	return NewPlanner(cfg, kin, clip, sched, nil), sched
}

func move(x, y float64) *standalone.Move {
	return &standalone.Move{End: standalone.Position{X: x, Y: y}, Velocity: 50, Accel: 500}
}

func TestQueueMoveTracksPlannedPosition(t *testing.T) {
	p, _ := newTestPlanner(t, nil)

	ok, err := p.QueueMove(move(10, 0))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = p.QueueMove(move(10, 20))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, standalone.Position{X: 10, Y: 20}, p.Position())
	assert.Equal(t, standalone.Position{}, p.MachinePosition())
	assert.Equal(t, 2, p.Pending())
	assert.False(t, p.IsIdle())
}

func TestMovesCompleteOnScheduler(t *testing.T) {
	p, sched := newTestPlanner(t, nil)

	m1 := move(10, 0)
	m2 := move(10, 20)
	_, err := p.QueueMove(m1)
	require.NoError(t, err)
	_, err = p.QueueMove(m2)
	require.NoError(t, err)

	sched.Dispatch(m1.Duration - 1)
	assert.Equal(t, 2, p.Pending())

	sched.Dispatch(m1.Duration)
	assert.Equal(t, 1, p.Pending())
	assert.Equal(t, standalone.Position{X: 10}, p.MachinePosition())

	sched.Dispatch(m1.Duration + m2.Duration)
	assert.True(t, p.IsIdle())
	assert.Equal(t, standalone.Position{X: 10, Y: 20}, p.MachinePosition())
	assert.Equal(t, 0, sched.Pending())
}

func TestQueueMoveAppliesClipChain(t *testing.T) {
	var chain limits.ClipChain
	chain.Push(limits.ClipperFunc(func(target *standalone.Position, current standalone.Position, next limits.ClipFunc) {
		if target.X > 40 {
			target.X = 40
		}
		next(target, current)
	}))
	p, _ := newTestPlanner(t, &chain)

	m := move(100, 0)
	ok, err := p.QueueMove(m)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40.0, m.End.X)
	assert.Equal(t, 40.0, m.Distance)
	assert.Equal(t, standalone.Position{X: 40}, p.Position())
}

func TestMoveClippedToZeroIsDropped(t *testing.T) {
	var chain limits.ClipChain
	chain.Push(limits.ClipperFunc(func(target *standalone.Position, current standalone.Position, next limits.ClipFunc) {
		*target = current
	}))
	p, sched := newTestPlanner(t, &chain)

	ok, err := p.QueueMove(move(100, 0))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, p.IsIdle())
	assert.Equal(t, 0, sched.Pending())
}

func TestQueueMoveRejectsBadMoves(t *testing.T) {
	p, _ := newTestPlanner(t, nil)

	_, err := p.QueueMove(&standalone.Move{End: standalone.Position{X: 1}})
	assert.ErrorIs(t, err, ErrInvalidMove)

	_, err = p.QueueMove(move(600, 0))
	assert.ErrorIs(t, err, kinematics.ErrOutOfLimits)
}

func TestTrapezoidProfiles(t *testing.T) {
	p, _ := newTestPlanner(t, nil)

	// 50 mm/s at 500 mm/s^2 needs 2.5 mm to accelerate
	long := move(100, 0)
	_, err := p.QueueMove(long)
	require.NoError(t, err)
	assert.Equal(t, 50.0, long.CruiseVel)
	assert.Equal(t, uint32(100), long.AccelTicks)
	assert.Equal(t, uint32(1900), long.CruiseTicks)
	assert.Equal(t, long.AccelTicks+long.CruiseTicks+long.DecelTicks, long.Duration)

	short := move(101, 0)
	_, err = p.QueueMove(short)
	require.NoError(t, err)
	assert.Zero(t, short.CruiseTicks)
	assert.Less(t, short.CruiseVel, 50.0)
}

func TestAxisVelocityLimit(t *testing.T) {
	p, _ := newTestPlanner(t, nil)

	m := &standalone.Move{End: standalone.Position{Z: 50}, Velocity: 50, Accel: 500}
	_, err := p.QueueMove(m)
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Velocity)
}

func TestClearQueue(t *testing.T) {
	p, sched := newTestPlanner(t, nil)

	m := move(10, 0)
	_, err := p.QueueMove(m)
	require.NoError(t, err)
	_, err = p.QueueMove(move(20, 0))
	require.NoError(t, err)
	sched.Dispatch(m.Duration)

	p.ClearQueue()
	assert.True(t, p.IsIdle())
	assert.Equal(t, standalone.Position{X: 10}, p.Position())
	assert.Equal(t, 0, sched.Pending())
}

func TestSetPosition(t *testing.T) {
	p, _ := newTestPlanner(t, nil)
	pos := standalone.Position{X: 1, Y: 2, Z: 3, A: 4}
	p.SetPosition(pos)
	assert.Equal(t, pos, p.Position())
	assert.Equal(t, pos, p.MachinePosition())
}
