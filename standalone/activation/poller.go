// Package activation holds the producers of keepout enable/disable
// transitions: the rack presence poller, the tool-change observer and the
// M960 operator command. Each one writes to keepout.State with its own
// source tag.
package activation

import (
	"log/slog"
	"sync"

	"atcguard/core"
	"atcguard/standalone"
	"atcguard/standalone/keepout"
)

const (
	// StartupDelayMS is how long after start the first poll runs
	StartupDelayMS = 1000
	// DefaultPollMS is the sampling period
	DefaultPollMS = 100
)

// Sensors are the inputs sampled each poll. Any of them may be nil.
type Sensors struct {
	Rack       core.Sensor
	Drawbar    core.Sensor
	ToolLength core.Sensor
	Pressure   core.Sensor
}

// PositionFunc returns the planner position used for the inside-zone flag
type PositionFunc func() standalone.Position

// RackPoller samples the sensors on the scheduler. While rack monitoring is
// on, every change of the rack level drives the runtime flag.
type RackPoller struct {
	mu        sync.Mutex
	state     *keepout.State
	sensors   Sensors
	position  PositionFunc
	interval  uint32
	lastLevel bool
	inputs    keepout.Inputs
	timer     core.Timer
	logger    *slog.Logger
}

// NewRackPoller creates a poller sampling every intervalMS (DefaultPollMS if 0)
func NewRackPoller(state *keepout.State, sensors Sensors, position PositionFunc, intervalMS uint32, logger *slog.Logger) *RackPoller {
	if intervalMS == 0 {
		intervalMS = DefaultPollMS
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &RackPoller{
		state:    state,
		sensors:  sensors,
		position: position,
		interval: core.TimerFromMS(intervalMS),
		logger:   logger,
	}
	p.timer.Handler = p.handle
	return p
}

// Start schedules the first poll StartupDelayMS after now
func (p *RackPoller) Start(sched *core.Scheduler, now uint32) {
	p.timer.WakeTime = now + core.TimerFromMS(StartupDelayMS)
	sched.Schedule(&p.timer)
}

// Stop removes the poller from sched
func (p *RackPoller) Stop(sched *core.Scheduler) {
	sched.Cancel(&p.timer)
}

func (p *RackPoller) handle(t *core.Timer) uint8 {
	p.Poll()
	t.WakeTime += p.interval
	return core.SF_RESCHEDULE
}

// Poll takes one sample of every input
func (p *RackPoller) Poll() {
	flags := p.state.Flags()

	p.mu.Lock()
	edge := false
	if flags.MonitorRackPresence {
		level := active(p.sensors.Rack)
		if level != p.lastLevel {
			p.lastLevel = level
			edge = true
		}
	}
	level := p.lastLevel

	in := keepout.Inputs{
		Rack:       p.lastLevel,
		Drawbar:    active(p.sensors.Drawbar),
		ToolLength: active(p.sensors.ToolLength),
		Pressure:   active(p.sensors.Pressure),
	}
	if p.position != nil {
		in.InsideZone = p.state.Bounds().Contains(keepout.PointOf(p.position()))
	}
	p.inputs = in
	p.mu.Unlock()

	// the state notifies observers, so it is written outside mu
	if edge && p.state.SetActive(level, keepout.SourceRack) {
		p.logger.Info("keepout transition", "source", keepout.SourceRack.String(), "enabled", level)
	}
}

// Inputs returns the last sample
func (p *RackPoller) Inputs() keepout.Inputs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputs
}

func active(s core.Sensor) bool {
	return s != nil && s.Active()
}
