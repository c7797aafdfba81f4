package planner

import (
	"errors"
	"log/slog"
	"math"
	"sync"

	"atcguard/core"
	"atcguard/standalone"
	"atcguard/standalone/kinematics"
	"atcguard/standalone/limits"
)

// ErrInvalidMove is returned for moves with no usable feed or acceleration
var ErrInvalidMove = errors.New("planner: invalid move")

// Planner handles motion planning and execution.
// Moves are timed on the scheduler; there is no step generation.
type Planner struct {
	mu         sync.Mutex
	config     *standalone.MachineConfig
	kinematics kinematics.Kinematics
	clip       *limits.ClipChain
	sched      *core.Scheduler
	logger     *slog.Logger

	// position is the end of the last queued move, machinePos the end of
	// the last completed one
	position   standalone.Position
	machinePos standalone.Position
	moveQueue  []*standalone.Move
	active     *standalone.Move
	executing  bool
	timer      core.Timer
}

// NewPlanner creates a new motion planner. Every queued target passes
// through clip before it is planned.
func NewPlanner(config *standalone.MachineConfig, kin kinematics.Kinematics, clip *limits.ClipChain, sched *core.Scheduler, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Planner{
		config:     config,
		kinematics: kin,
		clip:       clip,
		sched:      sched,
		logger:     logger,
		moveQueue:  make([]*standalone.Move, 0, 32),
	}
	p.timer.Handler = p.moveComplete
	return p
}

// QueueMove clips the move's target and adds it to the queue. It reports
// whether anything was queued: a move clipped down to zero length is dropped.
func (p *Planner) QueueMove(move *standalone.Move) (bool, error) {
	if move.Velocity <= 0 || move.Accel <= 0 {
		return false, ErrInvalidMove
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	move.Start = p.position
	if p.clip != nil {
		p.clip.Apply(&move.End, move.Start)
	}
	if err := p.kinematics.CheckLimits(move.End); err != nil {
		return false, err
	}

	move.Distance = distance(move.Start, move.End)
	if move.Distance == 0 {
		p.logger.Debug("dropping zero length move", "x", move.End.X, "y", move.End.Y)
		return false, nil
	}

	p.calculateTrapezoid(move)

	p.moveQueue = append(p.moveQueue, move)
	p.position = move.End

	// Start execution if not already running
	if !p.executing {
		p.startNext()
		p.timer.WakeTime = p.sched.Now() + p.active.Duration
		p.sched.Schedule(&p.timer)
	}

	return true, nil
}

// calculateTrapezoid calculates the trapezoidal velocity profile for a move
func (p *Planner) calculateTrapezoid(move *standalone.Move) {
	// Limit velocity to axis maximums
	maxVel := move.Velocity
	deltas := [...]float64{
		math.Abs(move.End.X - move.Start.X),
		math.Abs(move.End.Y - move.Start.Y),
		math.Abs(move.End.Z - move.Start.Z),
		math.Abs(move.End.A - move.Start.A),
	}
	for i, name := range p.kinematics.GetAxisNames() {
		if i >= len(deltas) || deltas[i] == 0 {
			continue
		}
		axis, ok := p.config.Axes[name]
		if !ok || axis.MaxVelocity <= 0 {
			continue
		}
		if maxVel*deltas[i]/move.Distance > axis.MaxVelocity {
			maxVel = axis.MaxVelocity * move.Distance / deltas[i]
		}
	}
	move.Velocity = maxVel

	// Simplified trapezoid, every move starts and ends at rest
	accelDist := (maxVel * maxVel) / (2.0 * move.Accel)

	if accelDist*2.0 >= move.Distance {
		// Triangle profile (can't reach full speed)
		accelDist = move.Distance / 2.0
		move.CruiseVel = math.Sqrt(2.0 * move.Accel * accelDist)

		accelTime := move.CruiseVel / move.Accel
		move.AccelTicks = secondsToTicks(accelTime)
		move.CruiseTicks = 0
		move.DecelTicks = move.AccelTicks
	} else {
		cruiseDist := move.Distance - 2.0*accelDist
		move.CruiseVel = maxVel

		accelTime := maxVel / move.Accel
		move.AccelTicks = secondsToTicks(accelTime)
		move.CruiseTicks = secondsToTicks(cruiseDist / maxVel)
		move.DecelTicks = move.AccelTicks
	}
	move.Duration = move.AccelTicks + move.CruiseTicks + move.DecelTicks
}

// startNext pops the queue head into active. Caller holds mu.
func (p *Planner) startNext() {
	p.active = p.moveQueue[0]
	p.moveQueue = p.moveQueue[1:]
	p.executing = true
}

// moveComplete runs on the scheduler when the active move's time is up
func (p *Planner) moveComplete(t *core.Timer) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		p.machinePos = p.active.End
		p.active = nil
	}
	if len(p.moveQueue) == 0 {
		p.executing = false
		return core.SF_DONE
	}

	p.startNext()
	t.WakeTime += p.active.Duration
	return core.SF_RESCHEDULE
}

// Position returns the planned position, the end of the last queued move
func (p *Planner) Position() standalone.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// MachinePosition returns the end of the last completed move
func (p *Planner) MachinePosition() standalone.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machinePos
}

// SetPosition sets the current position without motion
func (p *Planner) SetPosition(pos standalone.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	p.machinePos = pos
}

// ClearQueue drops queued moves and stops where the last completed move ended
func (p *Planner) ClearQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sched.Cancel(&p.timer)
	p.moveQueue = p.moveQueue[:0]
	p.active = nil
	p.executing = false
	p.position = p.machinePos
}

// IsIdle returns true if no moves are queued or executing
func (p *Planner) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.executing && len(p.moveQueue) == 0
}

// Pending returns the number of moves not yet completed
func (p *Planner) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.moveQueue)
	if p.active != nil {
		n++
	}
	return n
}

func distance(a, b standalone.Position) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	da := b.A - a.A
	return math.Sqrt(dx*dx + dy*dy + dz*dz + da*da)
}

func secondsToTicks(seconds float64) uint32 {
	return uint32(math.Ceil(seconds * core.TimerFreq))
}
