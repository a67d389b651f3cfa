// internal/browser/scheduler.go
package browser

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler abstracts timer creation so the indicator choreography can be
// driven by a fake clock in tests.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NewScheduler returns the wall-clock scheduler.
func NewScheduler() Scheduler {
	return realScheduler{}
}
