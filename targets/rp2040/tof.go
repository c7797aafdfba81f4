//go:build rp2040 || rp2350

package main

import (
	"machine"

	"tinygo.org/x/drivers/vl53l1x"

	"atcguard/core"
)

const (
	tofTimingBudgetUS = 50000 // 50ms measurement timing budget
	tofPeriodMS       = 60
	tofThresholdMM    = 40 // holder seated in the pocket
	tofHysteresisMM   = 8
)

// newRackTOF sets up a VL53L1X on I2C0 (SDA GPIO4, SCL GPIO5) looking into
// the rack pocket. It returns nil when no sensor answers.
func newRackTOF() core.Sensor {
	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
	})
	if err != nil {
		return nil
	}

	sensor := vl53l1x.New(i2c)
	if !sensor.Connected() {
		return nil
	}
	sensor.Configure(true)
	sensor.SetMeasurementTimingBudget(tofTimingBudgetUS)
	sensor.StartContinuous(tofPeriodMS)

	return &core.PresenceSensor{
		Reader:       &sensor,
		ThresholdMM:  tofThresholdMM,
		HysteresisMM: tofHysteresisMM,
	}
}
