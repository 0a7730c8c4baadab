package calendar

import "time"

// Clock returns the current calendar day. Engines take a Clock instead of
// calling time.Now so tests can pin "today".
type Clock func() Date

// SystemClock reads the local wall clock.
func SystemClock() Date { return FromTime(time.Now()) }

// Fixed returns a Clock that always reports d.
func Fixed(d Date) Clock {
	return func() Date { return d }
}
