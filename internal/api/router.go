package api

import (
    "net/http"
    "strings"
)

func NewRouter(h *Handlers) http.Handler {
    mux := http.NewServeMux()

    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        w.Write([]byte("ok"))
    })

    mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodGet {
            h.HandleListSessions(w, r)
            return
        }
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    })

    mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
        // /sessions/{id}/events | /history
        path := strings.TrimSuffix(r.URL.Path, "/")
        const prefix = "/sessions/"
        rest := strings.TrimPrefix(path, prefix)
        parts := strings.Split(rest, "/")
        if len(parts) == 0 || parts[0] == "" {
            http.NotFound(w, r)
            return
        }
        id := parts[0]
        tail := ""
        if len(parts) > 1 {
            tail = parts[1]
        }

        if r.Method != http.MethodGet {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        switch tail {
        case "events":
            h.HandleListEvents(w, r, id)
        case "history":
            h.HandleHistory(w, r, id)
        default:
            http.NotFound(w, r)
        }
    })

    return mux
}
