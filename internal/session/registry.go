package session

import (
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"

    "brewline/agent/internal/agent"
)

var ErrSessionExists = errors.New("session already exists")

// Registry owns one Session per active call. Sessions are created on the
// call's setup message and destroyed when the call ends or is cleaned up.
type Registry struct {
    mu       sync.RWMutex
    sessions map[string]*Session
    phrases  []string
}

func NewRegistry(phrases []string) *Registry {
    return &Registry{
        sessions: make(map[string]*Session),
        phrases:  phrases,
    }
}

// Create registers a session under id, generating one when id is empty.
func (r *Registry) Create(id, callSID string, gen agent.Generator) (*Session, error) {
    if id == "" {
        id = uuid.New().String()
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.sessions[id]; ok {
        return nil, ErrSessionExists
    }
    s := &Session{
        ID:        id,
        CallSID:   callSID,
        CreatedAt: time.Now().UTC(),
        gen:       gen,
        phrases:   r.phrases,
    }
    r.sessions[id] = s
    return s, nil
}

func (r *Registry) Get(id string) *Session {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return r.sessions[id]
}

func (r *Registry) Remove(id string) {
    r.mu.Lock()
    delete(r.sessions, id)
    r.mu.Unlock()
}

func (r *Registry) ListIDs() []string {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make([]string, 0, len(r.sessions))
    for id := range r.sessions {
        out = append(out, id)
    }
    return out
}
