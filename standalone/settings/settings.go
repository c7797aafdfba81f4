// Package settings persists the keepout rectangle and switches. Values are
// addressed by numeric id the same way the controller's $-settings are.
package settings

import (
	"errors"
	"fmt"
	"math"

	"atcguard/standalone/keepout"
)

// Setting ids
const (
	IDFlags = 683 // bitfield: plugin enabled, monitor rack presence, monitor tool change
	IDXMin  = 684
	IDYMin  = 685
	IDXMax  = 686
	IDYMax  = 687
)

// Allowed range for the bound settings
const (
	MinValue = -10000.0
	MaxValue = 10000.0
)

const (
	bitPluginEnabled uint8 = 1 << iota
	bitMonitorRack
	bitMonitorToolChange

	flagMask = bitPluginEnabled | bitMonitorRack | bitMonitorToolChange
)

var (
	// ErrUnknownSetting is returned for ids outside 683..687
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrValueOutOfRange is returned for values the setting cannot hold
	ErrValueOutOfRange = errors.New("value out of range")
)

// Settings is the persisted blob
type Settings struct {
	XMin  float64       `yaml:"x_min" json:"x_min"`
	YMin  float64       `yaml:"y_min" json:"y_min"`
	XMax  float64       `yaml:"x_max" json:"x_max"`
	YMax  float64       `yaml:"y_max" json:"y_max"`
	Flags keepout.Flags `yaml:"flags" json:"flags"`
}

// Defaults is a 40x40 zone at (10,10) with every switch off
func Defaults() Settings {
	return Settings{XMin: 10, YMin: 10, XMax: 50, YMax: 50}
}

// IDs lists the setting ids in report order
func IDs() []int {
	return []int{IDFlags, IDXMin, IDYMin, IDXMax, IDYMax}
}

// Rect returns the normalized keepout rectangle
func (s Settings) Rect() keepout.Rect {
	return keepout.NewRect(s.XMin, s.YMin, s.XMax, s.YMax)
}

// Validate checks every bound is finite and within range
func (s Settings) Validate() error {
	if err := (keepout.Rect{XMin: s.XMin, YMin: s.YMin, XMax: s.XMax, YMax: s.YMax}).Validate(); err != nil {
		return err
	}
	for _, id := range IDs()[1:] {
		v, _ := s.Value(id)
		if v < MinValue || v > MaxValue {
			return fmt.Errorf("$%d=%g: %w", id, v, ErrValueOutOfRange)
		}
	}
	return nil
}

// FlagBits packs the switches into the $683 bitfield
func FlagBits(f keepout.Flags) uint8 {
	var bits uint8
	if f.PluginEnabled {
		bits |= bitPluginEnabled
	}
	if f.MonitorRackPresence {
		bits |= bitMonitorRack
	}
	if f.MonitorToolChange {
		bits |= bitMonitorToolChange
	}
	return bits
}

// FlagsFromBits unpacks the $683 bitfield
func FlagsFromBits(bits uint8) keepout.Flags {
	return keepout.Flags{
		PluginEnabled:       bits&bitPluginEnabled != 0,
		MonitorRackPresence: bits&bitMonitorRack != 0,
		MonitorToolChange:   bits&bitMonitorToolChange != 0,
	}
}

// Value returns setting id as a number
func (s Settings) Value(id int) (float64, error) {
	switch id {
	case IDFlags:
		return float64(FlagBits(s.Flags)), nil
	case IDXMin:
		return s.XMin, nil
	case IDYMin:
		return s.YMin, nil
	case IDXMax:
		return s.XMax, nil
	case IDYMax:
		return s.YMax, nil
	}
	return 0, fmt.Errorf("$%d: %w", id, ErrUnknownSetting)
}

// Set assigns one setting. s is unchanged on error.
func (s *Settings) Set(id int, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("$%d: %w", id, ErrValueOutOfRange)
	}

	if id == IDFlags {
		if value < 0 || value > float64(flagMask) || value != math.Trunc(value) {
			return fmt.Errorf("$%d=%g: %w", id, value, ErrValueOutOfRange)
		}
		s.Flags = FlagsFromBits(uint8(value))
		return nil
	}

	var field *float64
	switch id {
	case IDXMin:
		field = &s.XMin
	case IDYMin:
		field = &s.YMin
	case IDXMax:
		field = &s.XMax
	case IDYMax:
		field = &s.YMax
	default:
		return fmt.Errorf("$%d: %w", id, ErrUnknownSetting)
	}
	if value < MinValue || value > MaxValue {
		return fmt.Errorf("$%d=%g: %w", id, value, ErrValueOutOfRange)
	}
	*field = value
	return nil
}

// Describe returns the display name of a setting
func Describe(id int) string {
	switch id {
	case IDFlags:
		return "Keepout plugin: enable, monitor rack presence, monitor TC macro"
	case IDXMin:
		return "Keepout X min (mm)"
	case IDYMin:
		return "Keepout Y min (mm)"
	case IDXMax:
		return "Keepout X max (mm)"
	case IDYMax:
		return "Keepout Y max (mm)"
	}
	return ""
}

// Format renders one setting the way $$ lists it
func (s Settings) Format(id int) string {
	v, err := s.Value(id)
	if err != nil {
		return ""
	}
	if id == IDFlags {
		return fmt.Sprintf("$%d=%d", id, int(v))
	}
	return fmt.Sprintf("$%d=%.3f", id, v)
}
