package kinematics

import (
	"atcguard/standalone"
	"atcguard/standalone/limits"
)

// Kinematics defines the interface for coordinate transformations.
// Every implementation is also the innermost handler of both limits chains.
type Kinematics interface {
	limits.Checker
	limits.Clipper

	// CalcPosition converts a machine position to per-axis coordinates
	CalcPosition(pos standalone.Position) ([]float64, error)

	// GetAxisNames returns the names of axes controlled by this kinematics
	GetAxisNames() []string

	// CheckLimits validates that a position is within configured limits
	CheckLimits(pos standalone.Position) error
}

// AxisLimits represents position limits for an axis
type AxisLimits struct {
	Min float64
	Max float64
}

// Clamp returns v limited to [Min, Max]
func (l AxisLimits) Clamp(v float64) float64 {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}
