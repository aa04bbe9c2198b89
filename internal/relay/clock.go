package relay

import "time"

// Clock abstracts the monotonic time source and cadence sleep of the relay
// loop so tests can drive cycles deterministically.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock used outside of tests. time.Now carries a
// monotonic reading, so cycle timestamps and elapsed measurements are immune
// to wall-clock adjustments.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
