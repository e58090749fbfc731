package session

import (
    "errors"
    "sync"
    "time"

    "brewline/agent/internal/agent"
    "brewline/agent/internal/align"
)

type Role string

const (
    RoleUser      Role = "user"
    RoleAssistant Role = "assistant"
)

type Kind string

const (
    KindNormal       Kind = "normal"
    KindInterstitial Kind = "interstitial"
)

// Entry is one line of conversation history. Redacted marks assistant
// entries already corrected after an interruption so they are never
// realigned twice.
type Entry struct {
    Role     Role   `json:"role"`
    Content  string `json:"content"`
    Kind     Kind   `json:"kind"`
    Redacted bool   `json:"redacted,omitempty"`
}

var (
    ErrNoHistory        = errors.New("no conversation history found")
    ErrNoAssistantEntry = errors.New("no assistant message found to redact")
)

// Session owns all per-call conversational state: the agent handle, the
// history log, and the filler rotation cursor. The cursor outlives turns so
// consecutive turns do not repeat the same phrase.
type Session struct {
    ID        string
    CallSID   string
    CreatedAt time.Time

    gen     agent.Generator
    phrases []string

    mu      sync.Mutex
    history []Entry
    cursor  int

    // turnMu serializes turns: a second turn never starts before the
    // previous one's finalization completes.
    turnMu sync.Mutex
}

// Generator returns the session's persistent agent handle.
func (s *Session) Generator() agent.Generator { return s.gen }

// BeginTurn blocks until any in-flight turn for this session finalizes.
func (s *Session) BeginTurn() { s.turnMu.Lock() }

// EndTurn releases the turn lock after finalization.
func (s *Session) EndTurn() { s.turnMu.Unlock() }

// NextPhrase advances the round-robin cursor and returns the filler phrase
// for the current turn.
func (s *Session) NextPhrase() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if len(s.phrases) == 0 {
        return ""
    }
    p := s.phrases[s.cursor%len(s.phrases)]
    s.cursor = (s.cursor + 1) % len(s.phrases)
    return p
}

func (s *Session) AppendUser(content string) {
    s.append(Entry{Role: RoleUser, Content: content, Kind: KindNormal})
}

func (s *Session) AppendAssistant(content string) {
    s.append(Entry{Role: RoleAssistant, Content: content, Kind: KindNormal})
}

func (s *Session) AppendInterstitial(content string) {
    s.append(Entry{Role: RoleAssistant, Content: content, Kind: KindInterstitial})
}

func (s *Session) append(e Entry) {
    s.mu.Lock()
    s.history = append(s.history, e)
    s.mu.Unlock()
}

// History returns a copy of the conversation log.
func (s *Session) History() []Entry {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]Entry, len(s.history))
    copy(out, s.history)
    return out
}

// RedactionResult describes what an interruption did to history.
type RedactionResult struct {
    Spoken   string // prefix confirmed spoken, "" when the entry was removed
    Original string // entry content before redaction
    Removed  bool
}

// Redact reconciles history against what was actually spoken before an
// interruption. The most recent unredacted assistant entry of kind normal is
// shortened to the spoken prefix, or removed entirely when nothing matched.
// Interstitial entries are skipped: they cannot be meaningfully realigned.
func (s *Session) Redact(utterance string) (RedactionResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    if len(s.history) == 0 {
        return RedactionResult{}, ErrNoHistory
    }

    for i := len(s.history) - 1; i >= 0; i-- {
        e := s.history[i]
        if e.Role != RoleAssistant || e.Kind == KindInterstitial || e.Redacted {
            continue
        }
        spoken := align.SpokenPrefix(e.Content, utterance)
        res := RedactionResult{Spoken: spoken, Original: e.Content}
        if spoken == "" {
            // Nothing confirmed spoken, the whole entry goes.
            s.history = append(s.history[:i], s.history[i+1:]...)
            res.Removed = true
            return res, nil
        }
        s.history[i].Content = spoken
        s.history[i].Redacted = true
        return res, nil
    }
    return RedactionResult{}, ErrNoAssistantEntry
}
