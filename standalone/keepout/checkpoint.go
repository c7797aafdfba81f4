package keepout

import (
	"log/slog"

	"atcguard/standalone"
	"atcguard/standalone/limits"
)

// Enforcer implements both motion checkpoints against a shared State.
// It is installed at the front of the limits chains and passes requests
// through untouched whenever the zone is not enforced.
type Enforcer struct {
	state    *State
	reporter Reporter
	logger   *slog.Logger
	margin   float64
}

var (
	_ limits.Checker = (*Enforcer)(nil)
	_ limits.Clipper = (*Enforcer)(nil)
)

// NewEnforcer creates checkpoints for state. reporter and logger may be nil.
func NewEnforcer(state *State, reporter Reporter, logger *slog.Logger) *Enforcer {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Enforcer{
		state:    state,
		reporter: reporter,
		logger:   logger,
		margin:   Tolerance,
	}
}

// State returns the state the checkpoints read
func (e *Enforcer) State() *State {
	return e.state
}

// CheckTravel is the pre-motion veto used before a jog starts. It never
// shortens a move: the jog either runs as requested or not at all.
func (e *Enforcer) CheckTravel(start, target standalone.Position, next limits.CheckFunc) bool {
	if !e.state.Enforced() {
		return next(start, target)
	}

	r := e.state.Bounds()
	current := Classify(PointOf(start), r, e.margin)

	if Classify(PointOf(target), r, e.margin) == DeepInside {
		msg := MsgTargetInZone
		if current.Inside() {
			msg = MsgInsideZone
		}
		e.emit(ActionVeto, msg, start, target, start)
		return false
	}

	if Intersects(Segment{A: PointOf(start), B: PointOf(target)}, r) {
		// touching the boundary while heading deeper gets the same
		// guidance as being trapped
		msg := MsgCrossing
		if current.Inside() {
			msg = MsgInsideZone
		}
		e.emit(ActionVeto, msg, start, target, start)
		return false
	}

	return next(start, target)
}

// ApplyTravel is the target transform used for programmed moves. A move that
// would enter the zone is cut short at the boundary; when no safe point
// exists ahead of the tool the move is replaced by a full stop.
func (e *Enforcer) ApplyTravel(target *standalone.Position, current standalone.Position, next limits.ClipFunc) {
	if !e.state.Enforced() {
		next(target, current)
		return
	}

	r := e.state.Bounds()
	zone := Classify(PointOf(current), r, e.margin)
	requested := *target

	if zone == DeepInside {
		*target = current
		e.emit(ActionStop, MsgInsideZone, current, requested, current)
		return
	}

	crosses := Intersects(Segment{A: PointOf(current), B: PointOf(requested)}, r)
	if !crosses && Classify(PointOf(requested), r, e.margin) != DeepInside {
		next(target, current)
		return
	}

	msg := MsgBlockedAtWall
	if zone.Inside() {
		msg = MsgInsideZone
	}

	if clipped, ok := ClippedEndpoint(current, requested, r); ok {
		*target = clipped
		e.emit(ActionClip, msg, current, requested, clipped)
		return
	}

	*target = current
	e.emit(ActionStop, msg, current, requested, current)
}

func (e *Enforcer) emit(action Action, msg string, start, target, result standalone.Position) {
	e.logger.Debug("keepout enforcement",
		"action", action.String(),
		"message", msg,
		"from_x", start.X, "from_y", start.Y,
		"to_x", target.X, "to_y", target.Y,
	)
	e.reporter.Report(Event{
		Action:  action,
		Message: msg,
		Start:   start,
		Target:  target,
		Result:  result,
	})
}
