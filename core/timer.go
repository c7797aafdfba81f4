package core

import "sync/atomic"

// TimerFreq is the scheduler tick rate: one tick per millisecond
const TimerFreq = 1000

var systemTicks atomic.Uint32

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * TimerFreq / 1000
}

// ProcessTimers dispatches due timers on the default scheduler
func ProcessTimers() {
	defaultScheduler.Dispatch(GetTime())
}
