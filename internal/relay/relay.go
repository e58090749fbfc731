// Package relay speaks the voice gateway's WebSocket protocol: setup creates
// a session, prompts stream turn output back as timed text frames, and
// interrupts trigger history redaction.
package relay

import (
    "context"
    "encoding/json"
    "log"
    "net/http"
    "strings"
    "time"

    ws "nhooyr.io/websocket"

    "brewline/agent/internal/agent"
    "brewline/agent/internal/config"
    "brewline/agent/internal/session"
    "brewline/agent/internal/store"
    "brewline/agent/internal/turn"
)

const unsupportedLanguageReply = "I'm sorry, I don't understand that language. Please try again in English."

type inboundMessage struct {
    Type                     string `json:"type"`
    SessionID                string `json:"sessionId,omitempty"`
    CallSID                  string `json:"callSid,omitempty"`
    VoicePrompt              string `json:"voicePrompt,omitempty"`
    Lang                     string `json:"lang,omitempty"`
    UtteranceUntilInterrupt  string `json:"utteranceUntilInterrupt,omitempty"`
    DurationUntilInterruptMs int64  `json:"durationUntilInterruptMs,omitempty"`
    Description              string `json:"description,omitempty"`
}

type textMessage struct {
    Type  string `json:"type"`
    Token string `json:"token"`
    Lang  string `json:"lang"`
    Last  bool   `json:"last"`
}

type endMessage struct {
    Type        string `json:"type"`
    HandoffData string `json:"handoffData,omitempty"`
}

const handoffData = `{"reasonCode":"live-agent-handoff", "reason":"Escalation to Human Agent"}`

// Server handles one gateway connection per call.
type Server struct {
    Cfg   config.Config
    Reg   *session.Registry
    Coord *turn.Coordinator
    Store *store.Store

    // NewGenerator builds the per-session agent handle on setup.
    NewGenerator func() agent.Generator
}

func NewServer(cfg config.Config, reg *session.Registry, coord *turn.Coordinator, st *store.Store, gen func() agent.Generator) *Server {
    return &Server{Cfg: cfg, Reg: reg, Coord: coord, Store: st, NewGenerator: gen}
}

func (s *Server) HandleRelayWS(w http.ResponseWriter, r *http.Request) {
    c, err := ws.Accept(w, r, nil)
    if err != nil {
        log.Printf("[relay] ws accept: %v", err)
        return
    }
    metricConnections.Inc()
    log.Printf("[relay] connection established")

    ctx := r.Context()
    var sess *session.Session
    start := time.Now()

    defer func() {
        _ = c.Close(ws.StatusNormalClosure, "done")
        if sess != nil {
            s.Reg.Remove(sess.ID)
            s.Store.Drop(sess.ID)
            log.Printf("[relay] session %s ended after %.2f seconds", sess.ID, time.Since(start).Seconds())
        }
    }()

    for {
        typ, data, err := c.Read(ctx)
        if err != nil {
            log.Printf("[relay] disconnected: %v", err)
            return
        }
        if typ != ws.MessageText && typ != ws.MessageBinary {
            continue
        }
        var msg inboundMessage
        if err := json.Unmarshal(data, &msg); err != nil {
            log.Printf("[relay] invalid json: %v", err)
            continue
        }

        switch msg.Type {
        case "setup":
            if msg.SessionID == "" {
                log.Printf("[relay] setup message missing sessionId")
                continue
            }
            sess, err = s.Reg.Create(msg.SessionID, msg.CallSID, s.NewGenerator())
            if err != nil {
                log.Printf("[relay] setup sid=%s: %v", msg.SessionID, err)
                sess = s.Reg.Get(msg.SessionID)
                continue
            }
            start = time.Now()
            s.Store.AppendEvent(sess.ID, "session_started", map[string]any{"call_sid": msg.CallSID})
            log.Printf("[relay] session %s initialized call_sid=%s", sess.ID, msg.CallSID)

        case "prompt":
            if sess == nil {
                log.Printf("[relay] prompt before setup")
                continue
            }
            s.handlePrompt(ctx, c, sess, msg)

        case "interrupt":
            if sess == nil {
                log.Printf("[relay] interrupt before setup")
                continue
            }
            metricInterrupts.Inc()
            s.Store.AppendEvent(sess.ID, "interrupt", map[string]any{
                "utterance": msg.UtteranceUntilInterrupt, "duration_ms": msg.DurationUntilInterruptMs,
            })
            if _, err := s.Coord.ProcessInterruption(sess, msg.UtteranceUntilInterrupt); err != nil {
                log.Printf("[relay] redaction failed sid=%s: %v", sess.ID, err)
            }

        case "error":
            log.Printf("[relay] gateway error sid=%s: %s", sessionID(sess), msg.Description)

        default:
            log.Printf("[relay] unknown message type %q", msg.Type)
        }
    }
}

func (s *Server) handlePrompt(ctx context.Context, c *ws.Conn, sess *session.Session, msg inboundMessage) {
    lang := msg.Lang
    if lang == "" {
        lang = s.Cfg.Relay.Language
    }
    if !strings.Contains(lang, "en") {
        log.Printf("[relay] unsupported language: %s", lang)
        metricUnsupportedLang.Inc()
        s.sendText(ctx, c, unsupportedLanguageReply, true)
        return
    }
    text := strings.TrimSpace(msg.VoicePrompt)
    if text == "" {
        log.Printf("[relay] empty voice prompt sid=%s", sess.ID)
        return
    }

    metricPrompts.Inc()
    s.Store.AppendEvent(sess.ID, "prompt", map[string]any{"text": text})

    var replyParts []string
    var endCall, handoff bool
    for ev := range s.Coord.ProcessUtterance(ctx, sess, text) {
        switch {
        case ev.Interstitial:
            s.Store.AppendEvent(sess.ID, "interstitial_sent", map[string]any{"phrase": ev.Chunk})
            s.sendText(ctx, c, ev.Chunk, true)
        case ev.Final:
            endCall, handoff = ev.EndCall, ev.Handoff
            if ev.Chunk != "" {
                // Failure fallback arrives as a final event with content.
                s.sendText(ctx, c, ev.Chunk, true)
                return
            }
            s.sendText(ctx, c, "", true)
        default:
            replyParts = append(replyParts, ev.Chunk)
            s.sendText(ctx, c, ev.Chunk, false)
        }
    }

    if !endCall && !handoff {
        return
    }

    // Let TTS finish the goodbye before tearing the call down.
    words := len(strings.Fields(strings.Join(replyParts, "")))
    s.speechDelay(ctx, words)

    end := endMessage{Type: "end"}
    if handoff {
        end.HandoffData = handoffData
        s.Store.AppendEvent(sess.ID, "handoff", nil)
        log.Printf("[relay] escalating to human agent sid=%s", sess.ID)
    } else {
        s.Store.AppendEvent(sess.ID, "call_ended", nil)
        log.Printf("[relay] call ended by assistant sid=%s", sess.ID)
    }
    s.sendJSON(ctx, c, end)
}

// speechDelay approximates how long the already-queued reply takes to speak.
func (s *Server) speechDelay(ctx context.Context, words int) {
    perWord := s.Cfg.Relay.SecondsPerWord
    min := s.Cfg.Relay.MinSpeechDelaySec
    sec := perWord * float64(words)
    if sec < min {
        sec = min
    }
    select {
    case <-time.After(time.Duration(sec * float64(time.Second))):
    case <-ctx.Done():
    }
}

func (s *Server) sendText(ctx context.Context, c *ws.Conn, token string, last bool) {
    s.sendJSON(ctx, c, textMessage{Type: "text", Token: token, Lang: s.Cfg.Relay.Language, Last: last})
}

func (s *Server) sendJSON(ctx context.Context, c *ws.Conn, v any) {
    b, err := json.Marshal(v)
    if err != nil {
        log.Printf("[relay] marshal: %v", err)
        return
    }
    wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := c.Write(wctx, ws.MessageText, b); err != nil {
        log.Printf("[relay] send failed: %v", err)
    }
}

func sessionID(s *session.Session) string {
    if s == nil {
        return "unknown"
    }
    return s.ID
}
