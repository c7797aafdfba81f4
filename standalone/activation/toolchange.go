package activation

import (
	"log/slog"
	"sync"

	"atcguard/core"
	"atcguard/standalone/keepout"
)

// ToolChange disables keepout for the duration of a tool change macro and
// re-derives it from the rack sensor when the change completes. It does
// nothing unless the monitor_tc_macro switch is on.
type ToolChange struct {
	mu      sync.Mutex
	state   *keepout.State
	rack    core.Sensor
	running bool
	logger  *slog.Logger
}

// NewToolChange creates the observer. rack is read directly at completion.
func NewToolChange(state *keepout.State, rack core.Sensor, logger *slog.Logger) *ToolChange {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ToolChange{state: state, rack: rack, logger: logger}
}

// ToolSelected forces keepout off while the macro runs, whatever the rack says
func (tc *ToolChange) ToolSelected(tool int) {
	if !tc.state.Flags().MonitorToolChange {
		return
	}
	tc.mu.Lock()
	tc.running = true
	tc.mu.Unlock()

	if tc.state.SetActive(false, keepout.SourceMacro) {
		tc.logger.Info("keepout transition", "source", keepout.SourceMacro.String(), "enabled", false, "tool", tool)
	}
}

// ToolChanged sets keepout strictly from the current rack level
func (tc *ToolChange) ToolChanged(tool int) {
	if !tc.state.Flags().MonitorToolChange {
		return
	}
	tc.mu.Lock()
	tc.running = false
	tc.mu.Unlock()

	level := active(tc.rack)
	if tc.state.SetActive(level, keepout.SourceRack) {
		tc.logger.Info("keepout transition", "source", keepout.SourceRack.String(), "enabled", level, "tool", tool)
	}
}

// MacroRunning reports whether a tool change is between select and complete
func (tc *ToolChange) MacroRunning() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.running
}
