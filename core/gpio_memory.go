package core

import "sync"

// MemoryDriver is an InputDriver whose pin levels are set in software.
// The host build uses it for the bench simulator and the HTTP input override.
type MemoryDriver struct {
	mu     sync.RWMutex
	levels map[GPIOPin]bool
	driven map[GPIOPin]bool
}

// NewMemoryDriver creates a driver with no configured pins
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		levels: make(map[GPIOPin]bool),
		driven: make(map[GPIOPin]bool),
	}
}

// ConfigureInputPullUp makes an undriven pin read high
func (d *MemoryDriver) ConfigureInputPullUp(pin GPIOPin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.driven[pin] {
		d.levels[pin] = true
	}
	return nil
}

// ConfigureInputPullDown makes an undriven pin read low
func (d *MemoryDriver) ConfigureInputPullDown(pin GPIOPin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.driven[pin] {
		d.levels[pin] = false
	}
	return nil
}

// ReadPin returns the electrical level
func (d *MemoryDriver) ReadPin(pin GPIOPin) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.levels[pin]
}

// Drive forces the electrical level of pin
func (d *MemoryDriver) Drive(pin GPIOPin, level bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = level
	d.driven[pin] = true
}
