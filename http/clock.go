package http

import (
	"time"

	"github.com/openbotauth/botsig"
)

// Clock provides the current time for signature validity checks.
type Clock = botsig.Clock

// SystemClock uses the system time.
type SystemClock = botsig.SystemClock

// FixedClock returns a Clock that always returns t.
func FixedClock(t time.Time) Clock {
	return botsig.ClockFunc(func() time.Time { return t })
}
