package keepout

import "atcguard/standalone"

// Operator messages. The sender UI matches on these strings verbatim.
const (
	MsgInsideZone    = "ATCI: You are currently inside the keepout zone. Disable keepout before Jogging to safety"
	MsgBlockedAtWall = "ATCI: Jog move blocked at keepout boundary."
	MsgCrossing      = "ATCI: Move crosses keepout zone"
	MsgTargetInZone  = "ATCI: Target inside region"
)

// Action is what a checkpoint did to a motion request
type Action uint8

const (
	// ActionVeto rejected a jog before it started
	ActionVeto Action = iota
	// ActionClip shortened a move to the zone boundary
	ActionClip
	// ActionStop replaced the target with the current position
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionVeto:
		return "veto"
	case ActionClip:
		return "clip"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Event describes one enforcement decision
type Event struct {
	Action  Action
	Message string
	Start   standalone.Position
	Target  standalone.Position // requested target
	Result  standalone.Position // target after enforcement; Start for vetoes
}

// Reporter receives enforcement events, typically to show Message to the operator
type Reporter interface {
	Report(ev Event)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(ev Event)

func (f ReporterFunc) Report(ev Event) {
	f(ev)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
