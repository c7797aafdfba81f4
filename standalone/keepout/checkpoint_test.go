package keepout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/standalone"
)

type recorder struct {
	events []Event
}

func (r *recorder) Report(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) last(t *testing.T) Event {
	t.Helper()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

func newEnforcer(t *testing.T, r Rect) (*Enforcer, *recorder) {
	t.Helper()
	state := NewState()
	state.SetBounds(r)
	state.SetFlags(Flags{PluginEnabled: true})
	rec := &recorder{}
	return NewEnforcer(state, rec, nil), rec
}

func pos(x, y float64) standalone.Position {
	return standalone.Position{X: x, Y: y}
}

func admit(standalone.Position, standalone.Position) bool { return true }

func TestCheckTravel(t *testing.T) {
	tests := []struct {
		name    string
		start   standalone.Position
		target  standalone.Position
		allowed bool
		msg     string
	}{
		{"target deep inside from outside", pos(0, 0), pos(30, 30), false, MsgTargetInZone},
		{"trapped and leaving", pos(30, 30), pos(60, 60), false, MsgInsideZone},
		{"target deep inside from edge", pos(10, 30), pos(30, 30), false, MsgInsideZone},
		{"crossing from outside", pos(0, 30), pos(60, 30), false, MsgCrossing},
		{"crossing from edge", pos(10, 30), pos(60, 30), false, MsgInsideZone},
		{"crossing near edge into margin", pos(0, 10.2), pos(60, 10.2), false, MsgCrossing},
		{"clear move", pos(0, 0), pos(60, 5), true, ""},
		{"along the edge", pos(10, 0), pos(10, 60), true, ""},
		{"leaving from margin band", pos(10.2, 30), pos(0, 30), false, MsgInsideZone},
		{"stopping on the edge", pos(0, 30), pos(10, 30), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

			got := e.CheckTravel(tt.start, tt.target, admit)
			assert.Equal(t, tt.allowed, got)
			if tt.allowed {
				assert.Empty(t, rec.events)
				return
			}
			ev := rec.last(t)
			assert.Equal(t, ActionVeto, ev.Action)
			assert.Equal(t, tt.msg, ev.Message)
			assert.Equal(t, tt.start, ev.Result)
		})
	}
}

func TestCheckTravelDelegatesWhenClear(t *testing.T) {
	e, _ := newEnforcer(t, NewRect(10, 10, 50, 50))

	called := false
	got := e.CheckTravel(pos(0, 0), pos(5, 5), func(start, target standalone.Position) bool {
		called = true
		return false
	})
	assert.True(t, called)
	assert.False(t, got, "the next handler's answer is returned")
}

func TestCheckTravelPassThroughWhenNotEnforced(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	e.State().SetActive(false, SourceCommand)
	assert.True(t, e.CheckTravel(pos(0, 0), pos(30, 30), admit))

	e.State().SetActive(true, SourceCommand)
	e.State().SetFlags(Flags{PluginEnabled: false})
	assert.True(t, e.CheckTravel(pos(0, 0), pos(30, 30), admit))

	assert.Empty(t, rec.events)
}

func TestApplyTravelClipsAtEntry(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, -5, 50, 5))

	target := standalone.Position{X: 100, Y: 0, Z: -1, A: 45}
	e.ApplyTravel(&target, standalone.Position{}, func(*standalone.Position, standalone.Position) {
		t.Fatal("a clipped move must not reach the next handler")
	})

	assert.InDelta(t, 10, target.X, 1e-9)
	assert.Equal(t, 0.0, target.Y)
	assert.Equal(t, -1.0, target.Z)
	assert.Equal(t, 45.0, target.A)

	ev := rec.last(t)
	assert.Equal(t, ActionClip, ev.Action)
	assert.Equal(t, MsgBlockedAtWall, ev.Message)
	assert.Equal(t, 100.0, ev.Target.X)
}

func TestApplyTravelTrappedStops(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	current := standalone.Position{X: 30, Y: 30, Z: 2}
	target := standalone.Position{X: 80, Y: 80, Z: 7}
	e.ApplyTravel(&target, current, nil)

	assert.Equal(t, current, target)
	ev := rec.last(t)
	assert.Equal(t, ActionStop, ev.Action)
	assert.Equal(t, MsgInsideZone, ev.Message)
}

func TestApplyTravelFromBoundaryFallsBackToStop(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	current := standalone.Position{X: 10, Y: 30, Z: 1}
	target := standalone.Position{X: 40, Y: 30, Z: 9}
	e.ApplyTravel(&target, current, nil)

	assert.Equal(t, current, target, "no forward safe point: full stop including Z")
	ev := rec.last(t)
	assert.Equal(t, ActionStop, ev.Action)
	assert.Equal(t, MsgInsideZone, ev.Message)
}

func TestApplyTravelFromMarginBandIntoZone(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	// inside the rectangle but within the tolerance, heading deeper
	current := pos(10.3, 30)
	target := pos(30, 30)
	e.ApplyTravel(&target, current, nil)

	assert.Equal(t, current, target)
	assert.Equal(t, MsgInsideZone, rec.last(t).Message)
}

func TestApplyTravelTargetDeepInsideFromOutside(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	target := pos(30, 30)
	e.ApplyTravel(&target, pos(30, 0), nil)

	assert.InDelta(t, 30, target.X, 1e-9)
	assert.InDelta(t, 10, target.Y, 1e-9)
	assert.Equal(t, MsgBlockedAtWall, rec.last(t).Message)
}

func TestApplyTravelDelegatesClearMoves(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))

	called := false
	target := pos(60, 5)
	e.ApplyTravel(&target, pos(0, 0), func(tg *standalone.Position, cur standalone.Position) {
		called = true
		tg.X = 55
	})

	assert.True(t, called)
	assert.Equal(t, 55.0, target.X)
	assert.Empty(t, rec.events)
}

func TestApplyTravelPassThroughWhenNotEnforced(t *testing.T) {
	e, rec := newEnforcer(t, NewRect(10, 10, 50, 50))
	e.State().SetActive(false, SourceMacro)

	called := false
	target := pos(30, 30)
	e.ApplyTravel(&target, pos(0, 0), func(*standalone.Position, standalone.Position) { called = true })

	assert.True(t, called)
	assert.Equal(t, pos(30, 30), target)
	assert.Empty(t, rec.events)
}
