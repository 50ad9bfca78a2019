package lending

import "time"

// Clock supplies the current time to the ledger.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC, truncated to whole seconds.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
