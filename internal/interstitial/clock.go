package interstitial

import "time"

// Clock abstracts cancellable timer creation, the scheduler's only real
// side effect. Tests substitute a fake to drive firings deterministically.
type Clock interface {
    NewTimer(d time.Duration) Timer
}

type Timer interface {
    C() <-chan time.Time
    Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by time.Timer.
func RealClock() Clock { return realClock{} }

func (realClock) NewTimer(d time.Duration) Timer {
    return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }
