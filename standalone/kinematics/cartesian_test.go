package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/standalone"
	"atcguard/standalone/limits"
)

func testConfig() *standalone.MachineConfig {
	return &standalone.MachineConfig{
		Axes: map[string]standalone.AxisConfig{
			"x": {MinPosition: 0, MaxPosition: 300},
			"y": {MinPosition: 0, MaxPosition: 200},
			"z": {MinPosition: -80, MaxPosition: 0},
		},
	}
}

func TestNewCartesianRequiresXYZ(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Axes, "z")

	_, err := NewCartesian(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "z axis")

	cfg = testConfig()
	cfg.Axes["y"] = standalone.AxisConfig{MinPosition: 10, MaxPosition: 0}
	_, err = NewCartesian(cfg)
	require.Error(t, err)
}

func TestCheckLimits(t *testing.T) {
	k, err := NewCartesian(testConfig())
	require.NoError(t, err)

	assert.NoError(t, k.CheckLimits(standalone.Position{X: 300, Y: 0, Z: -80, A: 1e6}))

	err = k.CheckLimits(standalone.Position{X: 10, Y: 201})
	assert.ErrorIs(t, err, ErrOutOfLimits)
	assert.Contains(t, err.Error(), "y")
}

func TestCheckTravelUsesLimitsThenDelegates(t *testing.T) {
	k, err := NewCartesian(testConfig())
	require.NoError(t, err)

	var chain limits.CheckChain
	chain.Push(k)

	assert.True(t, chain.Check(standalone.Position{}, standalone.Position{X: 20, Y: 20}))
	assert.False(t, chain.Check(standalone.Position{}, standalone.Position{X: -1}))
}

func TestApplyTravelClamps(t *testing.T) {
	k, err := NewCartesian(testConfig())
	require.NoError(t, err)

	var chain limits.ClipChain
	chain.Push(k)

	target := standalone.Position{X: 400, Y: -5, Z: 3, A: 720}
	chain.Apply(&target, standalone.Position{})
	assert.Equal(t, standalone.Position{X: 300, Y: 0, Z: 0, A: 720}, target)
}

func TestAxisLimitsClamp(t *testing.T) {
	l := AxisLimits{Min: -1, Max: 1}
	assert.Equal(t, -1.0, l.Clamp(-3))
	assert.Equal(t, 0.5, l.Clamp(0.5))
	assert.Equal(t, 1.0, l.Clamp(2))
}
