// Package store keeps a bounded per-call operational event log, useful for
// inspecting what a live call did (turns, fillers, interruptions) without
// reading server logs.
package store

import (
    "sync"
    "time"
)

type Event struct {
    Type    string         `json:"type"`
    Ts      time.Time      `json:"timestamp"`
    Payload map[string]any `json:"payload,omitempty"`
}

// maxEvents caps per-session growth; older events are dropped and a single
// truncation marker keeps the total at the cap.
const maxEvents = 200

type Store struct {
    mu     sync.RWMutex
    events map[string][]Event
}

func New() *Store {
    return &Store{events: make(map[string][]Event)}
}

func (s *Store) AppendEvent(sessionID, typ string, payload map[string]any) Event {
    evt := Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
    s.mu.Lock()
    defer s.mu.Unlock()
    s.events[sessionID] = append(s.events[sessionID], evt)
    if l := len(s.events[sessionID]); l > maxEvents {
        keep := maxEvents - 1
        dropped := l - keep
        s.events[sessionID] = append([]Event(nil), s.events[sessionID][l-keep:]...)
        warn := Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{
            "session_id": sessionID, "dropped": dropped, "kept": keep,
        }}
        s.events[sessionID] = append(s.events[sessionID], warn)
    }
    return evt
}

func (s *Store) ListEvents(sessionID string) []Event {
    s.mu.RLock()
    defer s.mu.RUnlock()
    src := s.events[sessionID]
    out := make([]Event, len(src))
    copy(out, src)
    return out
}

// Drop discards the log for a finished session.
func (s *Store) Drop(sessionID string) {
    s.mu.Lock()
    delete(s.events, sessionID)
    s.mu.Unlock()
}
