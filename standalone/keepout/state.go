package keepout

import "sync"

// Source tags the origin of the last enable/disable transition
type Source uint8

const (
	SourceStartup Source = iota
	SourceRack
	SourceCommand
	SourceMacro
)

func (s Source) String() string {
	switch s {
	case SourceStartup:
		return "startup"
	case SourceRack:
		return "rack"
	case SourceCommand:
		return "command"
	case SourceMacro:
		return "macro"
	default:
		return "unknown"
	}
}

// Letter is the status-report code for the source
func (s Source) Letter() byte {
	switch s {
	case SourceRack:
		return 'R'
	case SourceCommand:
		return 'M'
	case SourceMacro:
		return 'T'
	default:
		return 'S'
	}
}

// Flags are the persisted switches. They are configuration, never runtime state.
type Flags struct {
	PluginEnabled       bool `yaml:"plugin_enabled" json:"plugin_enabled"`
	MonitorRackPresence bool `yaml:"monitor_rack_presence" json:"monitor_rack_presence"`
	MonitorToolChange   bool `yaml:"monitor_tc_macro" json:"monitor_tc_macro"`
}

// ChangeFunc observes effective transitions of the runtime flag
type ChangeFunc func(enabled bool, source Source)

// Snapshot is a consistent copy of the keepout state
type Snapshot struct {
	Bounds   Rect
	Flags    Flags
	Enabled  bool
	Source   Source
	Enforced bool
}

// State holds the zone bounds, persisted flags and the runtime enable flag.
// The sensor poller, tool-change observer and operator command all write to
// it from different goroutines, so every access goes through mu.
type State struct {
	mu        sync.RWMutex
	bounds    Rect
	flags     Flags
	enabled   bool
	source    Source
	observers []ChangeFunc
}

// NewState returns a state that is runtime-enabled from startup with the
// plugin itself still disabled until configuration says otherwise
func NewState() *State {
	return &State{
		enabled: true,
		source:  SourceStartup,
	}
}

// OnChange registers fn to be called after every effective SetActive
func (s *State) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// SetBounds normalizes and stores the rectangle
func (s *State) SetBounds(r Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = r.Normalize()
}

// SetFlags stores the persisted flags
func (s *State) SetFlags(f Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = f
}

// SetActive updates the runtime flag and its source. It is a no-op when
// neither differs from the current value; it reports whether anything changed.
func (s *State) SetActive(enabled bool, source Source) bool {
	s.mu.Lock()
	if s.enabled == enabled && s.source == source {
		s.mu.Unlock()
		return false
	}
	s.enabled = enabled
	s.source = source
	observers := append([]ChangeFunc(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(enabled, source)
	}
	return true
}

// Enforced requires both the persisted plugin flag and the runtime flag
func (s *State) Enforced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags.PluginEnabled && s.enabled
}

// Bounds returns the current rectangle
func (s *State) Bounds() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

// Flags returns the persisted flags
func (s *State) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Snapshot returns all fields read under one lock
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Bounds:   s.bounds,
		Flags:    s.flags,
		Enabled:  s.enabled,
		Source:   s.source,
		Enforced: s.flags.PluginEnabled && s.enabled,
	}
}
