package app

import "time"

// timerHandle is a cancellable deferred call. Stop reports whether the call
// was prevented from firing.
type timerHandle interface {
	Stop() bool
}

// clock abstracts time for the session engine so tests can drive deadlines
// deterministically.
type clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) timerHandle
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) timerHandle {
	return time.AfterFunc(d, f)
}
