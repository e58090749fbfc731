// Package interstitial decides when a filler phrase is due while response
// generation is still working, so the caller never sits in silence.
package interstitial

import (
    "strings"
    "time"
)

// DefaultDelay is how long a tool call must run before filler is warranted:
// long enough that trivially fast lookups stay silent, short enough that the
// pause never feels broken.
const DefaultDelay = 400 * time.Millisecond

type State int

const (
    Idle State = iota
    Armed
    Ready
    Sent
    Suppressed
)

func (s State) String() string {
    switch s {
    case Idle:
        return "idle"
    case Armed:
        return "armed"
    case Ready:
        return "ready"
    case Sent:
        return "sent"
    case Suppressed:
        return "suppressed"
    }
    return "unknown"
}

// DefaultExcludedTools never trigger filler: a tool that is itself ending
// the call or handing off must not be padded with chatter.
var DefaultExcludedTools = []string{"end_call", "escalate_to_human_agent"}

// Scheduler is a per-turn state machine: Idle -> Armed -> Ready -> Sent,
// with Suppressed terminal from any non-terminal state. It is driven from a
// single goroutine (the turn's emission loop) and needs no locking.
type Scheduler struct {
    clock      Clock
    delay      time.Duration
    excluded   map[string]struct{}
    nextPhrase func() string

    state State
    timer Timer
}

// New builds a scheduler for one turn. nextPhrase supplies (and advances)
// the session's round-robin filler rotation, consulted only on Sent.
func New(clock Clock, delay time.Duration, excludedTools []string, nextPhrase func() string) *Scheduler {
    if delay <= 0 {
        delay = DefaultDelay
    }
    ex := make(map[string]struct{}, len(excludedTools))
    for _, t := range excludedTools {
        ex[t] = struct{}{}
    }
    return &Scheduler{clock: clock, delay: delay, excluded: ex, nextPhrase: nextPhrase}
}

// State reports the current machine state.
func (s *Scheduler) State() State { return s.state }

// FireC exposes the pending timer channel for the caller's select. Nil (and
// therefore never ready) when no timer is pending.
func (s *Scheduler) FireC() <-chan time.Time {
    if s.timer == nil {
        return nil
    }
    return s.timer.C()
}

// OnToolStart arms the timer for a non-excluded tool. Only the first
// arming per turn counts; later tool starts are no-ops.
func (s *Scheduler) OnToolStart(name string) {
    if s.state != Idle {
        return
    }
    if _, ok := s.excluded[name]; ok {
        return
    }
    s.state = Armed
    s.timer = s.clock.NewTimer(s.delay)
}

// OnToolEnd is bookkeeping only: a finished tool does not cancel the timer,
// since the reply may still be far off.
func (s *Scheduler) OnToolEnd(name string) {}

// TimerFired moves Armed to Ready. Firing in any other state is a benign
// late delivery and ignored.
func (s *Scheduler) TimerFired() {
    s.timer = nil
    if s.state == Armed {
        s.state = Ready
    }
}

// OnToken suppresses pending filler once real output arrives. Whitespace
// fragments do not count.
func (s *Scheduler) OnToken(text string) {
    if strings.TrimSpace(text) == "" {
        return
    }
    s.suppress()
}

// OnComplete suppresses pending filler when generation finishes.
func (s *Scheduler) OnComplete() { s.suppress() }

// OnEndFlag suppresses pending filler once call-end or handoff intent is
// known for the turn.
func (s *Scheduler) OnEndFlag() { s.suppress() }

// TakeReady emits the filler phrase when the machine is Ready. Sent is
// terminal: at most one interstitial per turn, even if another tool starts
// later.
func (s *Scheduler) TakeReady() (string, bool) {
    if s.state != Ready {
        return "", false
    }
    s.state = Sent
    return s.nextPhrase(), true
}

func (s *Scheduler) suppress() {
    if s.state == Sent || s.state == Suppressed {
        return
    }
    if s.timer != nil {
        s.timer.Stop()
        s.timer = nil
    }
    s.state = Suppressed
}
