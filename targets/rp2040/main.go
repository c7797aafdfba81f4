//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"atcguard/core"
	"atcguard/standalone/config"
	"atcguard/standalone/controller"
	"atcguard/standalone/settings"
)

// Settings live in RAM on the board; $-settings persist until power off.
var settingsBackend = &settings.MemoryBackend{}

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	if err := InitUSB(); err != nil {
		fail()
	}

	gpioDriver := NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)

	opts := []controller.Option{
		controller.WithInputDriver(gpioDriver),
		controller.WithSettingsBackend(settingsBackend),
	}
	if tof := newRackTOF(); tof != nil {
		opts = append(opts, controller.WithRackSensor(tof))
	}

	manager, err := controller.NewManagerWithConfig(config.DefaultCNCConfig(), opts...)
	if err != nil {
		fail()
	}
	if err := manager.Initialize(); err != nil {
		fail()
	}
	if err := manager.Start(UpdateSystemTime()); err != nil {
		fail()
	}

	blink(3, 200*time.Millisecond)

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					manager.SendResponse("error:internal\n")
				}
			}()

			for USBAvailable() > 0 {
				b, err := USBRead()
				if err != nil {
					break
				}
				// line errors are already queued as error: responses
				_ = manager.ProcessByte(b)
			}

			// sensor polls and move completions on the default scheduler
			UpdateSystemTime()
			core.ProcessTimers()
			writeUSB(manager.GetOutput())
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// writeUSB writes out, handling partial writes. Output is dropped when the
// host stops reading.
func writeUSB(out []byte) {
	written := 0
	for written < len(out) {
		n, err := USBWriteBytes(out[written:])
		if err != nil || n == 0 {
			return
		}
		written += n
	}
}

// fail flashes the LED rapidly forever
func fail() {
	for {
		blink(1, 100*time.Millisecond)
	}
}

func blink(times int, period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < times; i++ {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}
