package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGPIODriver is a test implementation of InputDriver
type MockGPIODriver struct {
	pins     map[GPIOPin]bool
	pullUps  map[GPIOPin]bool
	failPins map[GPIOPin]bool
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:     make(map[GPIOPin]bool),
		pullUps:  make(map[GPIOPin]bool),
		failPins: make(map[GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin GPIOPin) error {
	if m.failPins[pin] {
		return assert.AnError
	}
	m.pullUps[pin] = true
	m.pins[pin] = true
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullDown(pin GPIOPin) error {
	if m.failPins[pin] {
		return assert.AnError
	}
	m.pullUps[pin] = false
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ReadPin(pin GPIOPin) bool {
	return m.pins[pin]
}

func TestDigitalInputActiveLow(t *testing.T) {
	drv := NewMockGPIODriver()

	in, err := NewDigitalInput(drv, 7, true)
	require.NoError(t, err)
	assert.True(t, drv.pullUps[7], "active-low input should use the pull-up")

	// pulled up, switch open
	assert.False(t, in.Active())

	drv.pins[7] = false
	assert.True(t, in.Active())
}

func TestDigitalInputActiveHigh(t *testing.T) {
	drv := NewMockGPIODriver()

	in, err := NewDigitalInput(drv, 3, false)
	require.NoError(t, err)
	assert.False(t, drv.pullUps[3])
	assert.False(t, in.Active())

	drv.pins[3] = true
	assert.True(t, in.Active())
}

func TestDigitalInputErrors(t *testing.T) {
	_, err := NewDigitalInput(nil, 1, true)
	assert.ErrorIs(t, err, ErrNoGPIODriver)

	drv := NewMockGPIODriver()
	drv.failPins[2] = true
	_, err = NewDigitalInput(drv, 2, true)
	assert.Error(t, err)

	var in *DigitalInput
	assert.False(t, in.Active())
}

func TestMemoryDriver(t *testing.T) {
	drv := NewMemoryDriver()

	low, err := NewDigitalInput(drv, 3, true)
	require.NoError(t, err)
	high, err := NewDigitalInput(drv, 4, false)
	require.NoError(t, err)

	assert.False(t, low.Active())
	assert.False(t, high.Active())

	drv.Drive(3, false)
	drv.Drive(4, true)
	assert.True(t, low.Active())
	assert.True(t, high.Active())

	// reconfiguring keeps a driven level
	require.NoError(t, drv.ConfigureInputPullUp(3))
	assert.True(t, low.Active())
}
