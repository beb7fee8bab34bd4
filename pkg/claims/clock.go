package claims

import "time"

// Clock provides the current time to Assemble
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant
type FixedClock time.Time

// FixedUnix returns a FixedClock at the given Unix time in seconds
func FixedUnix(sec int64) FixedClock {
	return FixedClock(time.Unix(sec, 0))
}

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
