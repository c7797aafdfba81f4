package kinematics

import (
	"errors"
	"fmt"

	"atcguard/standalone"
	"atcguard/standalone/limits"
)

// ErrOutOfLimits is wrapped by CheckLimits for positions past the soft limits
var ErrOutOfLimits = errors.New("position out of limits")

// Cartesian implements basic Cartesian kinematics (XYZA 1:1 mapping)
type Cartesian struct {
	config *standalone.MachineConfig
}

var _ Kinematics = (*Cartesian)(nil)

// NewCartesian creates a new Cartesian kinematics instance
func NewCartesian(config *standalone.MachineConfig) (*Cartesian, error) {
	// Validate required axes
	for _, name := range []string{"x", "y", "z"} {
		axis, ok := config.Axes[name]
		if !ok {
			return nil, fmt.Errorf("%s axis not configured", name)
		}
		if axis.MinPosition > axis.MaxPosition {
			return nil, fmt.Errorf("%s axis: min_position %.3f above max_position %.3f",
				name, axis.MinPosition, axis.MaxPosition)
		}
	}

	return &Cartesian{
		config: config,
	}, nil
}

// CalcPosition converts XYZA coordinates to axis positions.
// For Cartesian, this is a 1:1 mapping.
func (k *Cartesian) CalcPosition(pos standalone.Position) ([]float64, error) {
	return []float64{pos.X, pos.Y, pos.Z, pos.A}, nil
}

// GetAxisNames returns the axis names for Cartesian kinematics
func (k *Cartesian) GetAxisNames() []string {
	return []string{"x", "y", "z", "a"}
}

// CheckLimits validates that a position is within configured limits
func (k *Cartesian) CheckLimits(pos standalone.Position) error {
	values, _ := k.CalcPosition(pos)
	for i, name := range k.GetAxisNames() {
		lim, ok := k.limits(name)
		if !ok {
			continue
		}
		if values[i] < lim.Min || values[i] > lim.Max {
			return fmt.Errorf("%s %w", name, ErrOutOfLimits)
		}
	}
	return nil
}

// CheckTravel rejects jogs whose target is past the soft limits
func (k *Cartesian) CheckTravel(start, target standalone.Position, next limits.CheckFunc) bool {
	if k.CheckLimits(target) != nil {
		return false
	}
	return next(start, target)
}

// ApplyTravel clamps the target to the soft limits of every configured axis
func (k *Cartesian) ApplyTravel(target *standalone.Position, current standalone.Position, next limits.ClipFunc) {
	if lim, ok := k.limits("x"); ok {
		target.X = lim.Clamp(target.X)
	}
	if lim, ok := k.limits("y"); ok {
		target.Y = lim.Clamp(target.Y)
	}
	if lim, ok := k.limits("z"); ok {
		target.Z = lim.Clamp(target.Z)
	}
	if lim, ok := k.limits("a"); ok {
		target.A = lim.Clamp(target.A)
	}
	next(target, current)
}

func (k *Cartesian) limits(name string) (AxisLimits, bool) {
	axis, ok := k.config.Axes[name]
	if !ok {
		return AxisLimits{}, false
	}
	return AxisLimits{Min: axis.MinPosition, Max: axis.MaxPosition}, true
}
