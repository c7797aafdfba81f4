package core

import "errors"

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// ErrNoGPIODriver is returned when an input is configured before a driver is registered
var ErrNoGPIODriver = errors.New("GPIO driver not configured")

// InputDriver is the abstract GPIO input interface that core code uses.
// Platform-specific implementations handle actual hardware access.
type InputDriver interface {
	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// ReadPin reads the current electrical level of the pin (true = high)
	ReadPin(pin GPIOPin) bool
}

// Global singleton used by target code.
var gpioDriver InputDriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d InputDriver) {
	gpioDriver = d
}

// GetGPIODriver returns the registered driver, or nil
func GetGPIODriver() InputDriver {
	return gpioDriver
}

// DigitalInput is a configured sensor line.
// ActiveLow inputs report Active() when the pin reads low, which is how
// the switch-to-ground sensors on the auxiliary header are wired.
type DigitalInput struct {
	Pin       GPIOPin
	ActiveLow bool
	driver    InputDriver
}

// NewDigitalInput configures pin on driver and returns the input.
// Active-low inputs get the pull-up so an open switch reads inactive.
func NewDigitalInput(driver InputDriver, pin GPIOPin, activeLow bool) (*DigitalInput, error) {
	if driver == nil {
		return nil, ErrNoGPIODriver
	}

	var err error
	if activeLow {
		err = driver.ConfigureInputPullUp(pin)
	} else {
		err = driver.ConfigureInputPullDown(pin)
	}
	if err != nil {
		return nil, err
	}

	return &DigitalInput{Pin: pin, ActiveLow: activeLow, driver: driver}, nil
}

// Active returns the logical sensor state
func (in *DigitalInput) Active() bool {
	if in == nil || in.driver == nil {
		return false
	}
	level := in.driver.ReadPin(in.Pin)
	if in.ActiveLow {
		return !level
	}
	return level
}

// Sensor is anything that can report a logical on/off state
type Sensor interface {
	Active() bool
}
