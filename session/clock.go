package session

import "time"

// Clock supplies the engine's notion of now. Injecting it lets tests drive
// session expiry deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
