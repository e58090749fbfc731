package interstitial

import (
    "sync"
    "time"
)

// FakeClock is a Clock for tests: timers never fire on their own, the test
// fires them explicitly. WaitTimer lets a test block until the code under
// test has actually created the timer, avoiding sleep-based synchronization.
type FakeClock struct {
    created chan *FakeTimer
}

func NewFakeClock() *FakeClock {
    return &FakeClock{created: make(chan *FakeTimer, 8)}
}

func (c *FakeClock) NewTimer(d time.Duration) Timer {
    t := &FakeTimer{D: d, ch: make(chan time.Time, 1)}
    c.created <- t
    return t
}

// WaitTimer blocks until the next timer is created and returns it.
func (c *FakeClock) WaitTimer() *FakeTimer { return <-c.created }

// PendingTimers reports timers created but not yet claimed via WaitTimer.
func (c *FakeClock) PendingTimers() int { return len(c.created) }

type FakeTimer struct {
    D time.Duration

    mu      sync.Mutex
    ch      chan time.Time
    stopped bool
    fired   bool
}

func (t *FakeTimer) C() <-chan time.Time { return t.ch }

func (t *FakeTimer) Stop() bool {
    t.mu.Lock()
    defer t.mu.Unlock()
    was := !t.stopped && !t.fired
    t.stopped = true
    return was
}

// Fire delivers the tick unless the timer was stopped first.
func (t *FakeTimer) Fire() {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.stopped || t.fired {
        return
    }
    t.fired = true
    t.ch <- time.Now()
}

// Stopped reports whether Stop was called before Fire.
func (t *FakeTimer) Stopped() bool {
    t.mu.Lock()
    defer t.mu.Unlock()
    return t.stopped
}
