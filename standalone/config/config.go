package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"atcguard/standalone"
)

// ErrUnsupportedKinematics is returned for any kinematics other than cartesian
var ErrUnsupportedKinematics = errors.New("unsupported kinematics")

// LoadConfig parses a YAML configuration and returns a MachineConfig
func LoadConfig(data []byte) (*standalone.MachineConfig, error) {
	var config standalone.MachineConfig

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	// Apply defaults
	applyDefaults(&config)

	if config.Kinematics != "cartesian" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKinematics, config.Kinematics)
	}

	return &config, nil
}

// LoadFile reads a machine config from path. An empty path or a missing
// file yields DefaultCNCConfig.
func LoadFile(path string) (*standalone.MachineConfig, error) {
	if path == "" {
		return DefaultCNCConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCNCConfig(), nil
		}
		return nil, fmt.Errorf("failed to read machine config: %w", err)
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *standalone.MachineConfig) {
	// Default kinematics
	if config.Kinematics == "" {
		config.Kinematics = "cartesian"
	}

	// Default motion parameters
	if config.DefaultVelocity == 0 {
		config.DefaultVelocity = 25.0 // 25 mm/s
	}
	if config.DefaultAccel == 0 {
		config.DefaultAccel = 500.0 // 500 mm/s^2
	}

	// Apply defaults to each axis
	for name, axis := range config.Axes {
		if axis.MaxVelocity == 0 {
			axis.MaxVelocity = 100.0
		}
		if axis.MaxAccel == 0 {
			axis.MaxAccel = 1000.0
		}
		config.Axes[name] = axis
	}

	if config.PollIntervalMS == 0 {
		config.PollIntervalMS = 100
	}
	if config.SettingsPath == "" {
		config.SettingsPath = "keepout.yaml"
	}
}

// DefaultCNCConfig returns a default configuration for a 3 axis router with
// a rotary A axis and a tool rack on aux inputs
func DefaultCNCConfig() *standalone.MachineConfig {
	return &standalone.MachineConfig{
		Kinematics: "cartesian",
		Axes: map[string]standalone.AxisConfig{
			"x": {
				MaxVelocity: 133.0,
				MaxAccel:    750.0,
				MinPosition: -845.0,
				MaxPosition: 0.0,
			},
			"y": {
				MaxVelocity: 133.0,
				MaxAccel:    750.0,
				MinPosition: -845.0,
				MaxPosition: 0.0,
			},
			"z": {
				MaxVelocity: 50.0,
				MaxAccel:    500.0,
				MinPosition: -170.0,
				MaxPosition: 0.0,
			},
			"a": {
				MaxVelocity: 360.0,
				MaxAccel:    1000.0,
				MinPosition: -100000.0,
				MaxPosition: 100000.0,
			},
		},
		Sensors: standalone.SensorsConfig{
			RackPresence: standalone.SensorConfig{Pin: 7, ActiveLow: true},
			Drawbar:      standalone.SensorConfig{Pin: 0, ActiveLow: true},
			ToolLength:   standalone.SensorConfig{Pin: 1, ActiveLow: true},
			Pressure:     standalone.SensorConfig{Pin: 2, ActiveLow: true},
		},
		DefaultVelocity: 25.0,
		DefaultAccel:    500.0,
		PollIntervalMS:  100,
		SettingsPath:    "keepout.yaml",
	}
}
