package standalone

// Position represents a position in machine coordinates
type Position struct {
	X float64
	Y float64
	Z float64
	A float64 // Rotary axis
}

// Move represents a planned move
type Move struct {
	Start    Position
	End      Position
	Velocity float64 // Max velocity (mm/s)
	Accel    float64 // Acceleration (mm/s^2)
	Distance float64 // Total distance (mm)
	Rapid    bool    // G0 traverse

	// Trapezoidal profile, filled in by the planner
	CruiseVel   float64
	AccelTicks  uint32
	CruiseTicks uint32
	DecelTicks  uint32
	Duration    uint32 // Total time in scheduler ticks
}

// AxisConfig represents configuration for a single axis
type AxisConfig struct {
	MaxVelocity float64 `yaml:"max_velocity"` // Maximum velocity (mm/s)
	MaxAccel    float64 `yaml:"max_accel"`    // Maximum acceleration (mm/s^2)
	MinPosition float64 `yaml:"min_position"` // Minimum position (mm)
	MaxPosition float64 `yaml:"max_position"` // Maximum position (mm)
}

// SensorConfig describes one digital sensor line
type SensorConfig struct {
	Pin       uint32 `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`
}

// SensorsConfig lists the auxiliary inputs read by the rack poller.
// Only RackPresence takes part in enforcement; the others are reported.
type SensorsConfig struct {
	RackPresence SensorConfig `yaml:"rack_presence"`
	Drawbar      SensorConfig `yaml:"drawbar"`
	ToolLength   SensorConfig `yaml:"tool_length"`
	Pressure     SensorConfig `yaml:"pressure"`
}

// MachineConfig represents the complete machine configuration
type MachineConfig struct {
	Kinematics string                `yaml:"kinematics"` // "cartesian"
	Axes       map[string]AxisConfig `yaml:"axes"`       // "x", "y", "z", "a"
	Sensors    SensorsConfig         `yaml:"sensors"`

	// Global motion parameters
	DefaultVelocity float64 `yaml:"default_velocity"` // Default feedrate (mm/s)
	DefaultAccel    float64 `yaml:"default_accel"`    // Default acceleration (mm/s^2)

	// Keepout runtime
	PollIntervalMS uint32 `yaml:"poll_interval_ms"` // Sensor poll period
	SettingsPath   string `yaml:"settings_path"`    // Persisted keepout settings
	JournalPath    string `yaml:"journal_path"`     // SQLite activation journal, empty disables
}

// MachineState represents the current machine state
type MachineState struct {
	Homed        [4]bool // Homing status [X, Y, Z, A]
	AbsoluteMode bool    // Absolute (G90) vs relative (G91) positioning
	FeedRate     float64 // Current feedrate (mm/s)
	CheckMode    bool    // $C: parse and validate, no motion
	Tool         int     // Tool in the spindle
	PendingTool  int     // Tool selected by T, waiting for M6
}

// GCodeCommand represents a parsed G-code command
type GCodeCommand struct {
	Type       byte             // 'G', 'M', 'T'
	Number     int              // Command number (e.g., 0 for G0, 28 for G28)
	Parameters map[byte]float64 // Parameters (X, Y, Z, A, F, P, etc.)
	Comment    string           // Comment text
}

// HasParameter checks if a parameter exists in the command
func (cmd *GCodeCommand) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *GCodeCommand) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}
