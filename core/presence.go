package core

import "sync"

// RangeReader is a distance sensor. Read returns millimetres, or 0 when a
// non-blocking read has no new measurement.
type RangeReader interface {
	Read(blocking bool) uint16
}

// PresenceSensor turns a distance sensor aimed at a rack pocket into a
// presence input. An object closer than ThresholdMM is present; it is
// absent again once it reads beyond ThresholdMM+HysteresisMM.
type PresenceSensor struct {
	Reader       RangeReader
	ThresholdMM  uint16
	HysteresisMM uint16

	mu      sync.Mutex
	present bool
}

// Active samples the sensor and returns the debounced presence state
func (p *PresenceSensor) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := p.Reader.Read(false)
	switch {
	case d == 0:
		// no new data
	case d < p.ThresholdMM:
		p.present = true
	case uint32(d) > uint32(p.ThresholdMM)+uint32(p.HysteresisMM):
		p.present = false
	}
	return p.present
}
