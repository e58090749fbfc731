package api

import (
    "encoding/json"
    "net/http"

    "brewline/agent/internal/session"
    "brewline/agent/internal/store"
)

type Handlers struct {
    reg   *session.Registry
    store *store.Store
}

func NewHandlers(reg *session.Registry, st *store.Store) *Handlers {
    return &Handlers{reg: reg, store: st}
}

func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
    ids := h.reg.ListIDs()
    writeJSON(w, map[string]any{"sessions": ids})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request, id string) {
    if h.reg.Get(id) == nil {
        http.NotFound(w, r)
        return
    }
    writeJSON(w, map[string]any{
        "session_id": id,
        "events":     h.store.ListEvents(id),
    })
}

func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request, id string) {
    sess := h.reg.Get(id)
    if sess == nil {
        http.NotFound(w, r)
        return
    }
    writeJSON(w, map[string]any{
        "session_id": id,
        "history":    sess.History(),
    })
}

func writeJSON(w http.ResponseWriter, v any) {
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(v)
}
