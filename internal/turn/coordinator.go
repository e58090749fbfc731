// Package turn orchestrates one conversational turn: it runs the blocking
// generation call on its own goroutine, batches fragments into speech-sized
// chunks, injects at most one filler phrase while the backend is slow, and
// reconciles history when the caller talks over the reply.
package turn

import (
    "context"
    "log"
    "strings"
    "time"

    "brewline/agent/internal/chunker"
    "brewline/agent/internal/interstitial"
    "brewline/agent/internal/session"
)

// FallbackReply is the single user-visible chunk emitted when generation
// fails. A bad turn degrades to an apology; the session stays usable.
const FallbackReply = "I'm sorry, I'm having trouble processing your request right now. Please try again."

type Options struct {
    Clock              interstitial.Clock
    InterstitialDelay  time.Duration
    ChunkWordThreshold int
    ChunkMaxChars      int
    ExcludedTools      []string
}

type Coordinator struct {
    opts Options
}

func New(opts Options) *Coordinator {
    if opts.Clock == nil {
        opts.Clock = interstitial.RealClock()
    }
    if opts.InterstitialDelay <= 0 {
        opts.InterstitialDelay = interstitial.DefaultDelay
    }
    if len(opts.ExcludedTools) == 0 {
        opts.ExcludedTools = interstitial.DefaultExcludedTools
    }
    return &Coordinator{opts: opts}
}

// ProcessUtterance starts one turn and returns its event stream. The
// returned channel is closed after the Final event. Turns on the same
// session are serialized; sessions run independently.
func (c *Coordinator) ProcessUtterance(ctx context.Context, sess *session.Session, text string) <-chan Event {
    out := make(chan Event)
    go c.runTurn(ctx, sess, text, out)
    return out
}

// ProcessInterruption corrects the session history to reflect only what was
// spoken before the caller talked over the reply.
func (c *Coordinator) ProcessInterruption(sess *session.Session, spokenText string) (session.RedactionResult, error) {
    res, err := sess.Redact(spokenText)
    if err != nil {
        log.Printf("[turn] redaction skipped sid=%s: %v", sess.ID, err)
        return res, err
    }
    metricRedactions.Inc()
    if res.Removed {
        metricRedactionRemovals.Inc()
        log.Printf("[turn] redaction removed unspoken reply sid=%s", sess.ID)
    } else {
        log.Printf("[turn] redaction kept spoken prefix sid=%s chars=%d", sess.ID, len(res.Spoken))
    }
    return res, nil
}

// streamEvent carries generator progress across the single-producer /
// single-consumer channel between the generation goroutine and the turn's
// emission loop.
type streamEvent struct {
    kind streamEventKind
    text string // token text or tool name
    full string // final reply, done only
    err  error  // done only
}

type streamEventKind int

const (
    evToken streamEventKind = iota
    evToolStart
    evToolEnd
    evDone
)

type chanListener struct {
    ch chan<- streamEvent
}

func (l *chanListener) OnToken(text string)     { l.ch <- streamEvent{kind: evToken, text: text} }
func (l *chanListener) OnToolStart(name string) { l.ch <- streamEvent{kind: evToolStart, text: name} }
func (l *chanListener) OnToolEnd(name string)   { l.ch <- streamEvent{kind: evToolEnd, text: name} }
func (l *chanListener) OnGenerationStart()      {}
func (l *chanListener) OnGenerationEnd()        {}

func (c *Coordinator) runTurn(ctx context.Context, sess *session.Session, text string, out chan<- Event) {
    defer close(out)

    // Serialize turns: history stays consistent because no second turn
    // starts before this one's finalization.
    sess.BeginTurn()
    defer sess.EndTurn()

    start := time.Now()
    metricTurns.Inc()
    sess.AppendUser(text)

    frags := make(chan streamEvent, 64)
    gen := sess.Generator()
    go func() {
        full, err := gen.Generate(ctx, text, &chanListener{ch: frags})
        frags <- streamEvent{kind: evDone, full: full, err: err}
        close(frags)
    }()

    sched := interstitial.New(c.opts.Clock, c.opts.InterstitialDelay, c.opts.ExcludedTools, sess.NextPhrase)
    chk := chunker.NewWithLimits(c.opts.ChunkWordThreshold, c.opts.ChunkMaxChars)

    var acc strings.Builder
    var endCall, handoff bool
    var sentPhrases []string
    firstChunkAt := time.Time{}

    // The consumer may abandon the stream (context cancelled); generation
    // still runs to completion, its remaining output is discarded but the
    // history finalization below still happens.
    discard := false
    emit := func(e Event) {
        if discard {
            return
        }
        select {
        case out <- e:
        case <-ctx.Done():
            discard = true
        }
    }

    setEndCall := func() {
        if !endCall {
            endCall = true
            sched.OnEndFlag()
        }
    }
    setHandoff := func() {
        if !handoff {
            handoff = true
            sched.OnEndFlag()
        }
    }

    for {
        select {
        case ev := <-frags:
            switch ev.kind {
            case evToolStart:
                switch ev.text {
                case ToolEndCall:
                    setEndCall()
                case ToolHandoff:
                    setHandoff()
                default:
                    sched.OnToolStart(ev.text)
                }

            case evToolEnd:
                sched.OnToolEnd(ev.text)

            case evToken:
                sched.OnToken(ev.text)
                acc.WriteString(ev.text)
                if !endCall || !handoff {
                    in := DetectIntent(acc.String())
                    if in.EndCall {
                        setEndCall()
                    }
                    if in.Handoff {
                        setHandoff()
                    }
                }
                if chunk, ok := chk.Feed(ev.text); ok {
                    if firstChunkAt.IsZero() {
                        firstChunkAt = time.Now()
                        metricFirstChunk.Observe(float64(firstChunkAt.Sub(start).Milliseconds()))
                    }
                    metricChunks.Inc()
                    emit(Event{Chunk: chunk})
                }

            case evDone:
                sched.OnComplete()

                if ev.err != nil {
                    // A failed turn surfaces one apology. Buffered
                    // fragments are dropped and no assistant entry is kept.
                    log.Printf("[turn] generation failed sid=%s: %v", sess.ID, ev.err)
                    metricTurnFailures.Inc()
                    emit(Event{Chunk: FallbackReply, Final: true})
                    return
                }

                if chunk, ok := chk.Flush(); ok {
                    metricChunks.Inc()
                    emit(Event{Chunk: chunk})
                }
                if n := chk.Truncations(); n > 0 {
                    metricChunkTruncations.Add(float64(n))
                }

                full := acc.String()
                if full == "" {
                    full = ev.full
                }
                clean, in := StripMarker(full)
                if in.EndCall {
                    endCall = true
                }
                if in.Handoff {
                    handoff = true
                }

                sess.AppendAssistant(clean)
                for _, p := range sentPhrases {
                    sess.AppendInterstitial(p)
                }

                emit(Event{Final: true, EndCall: endCall, Handoff: handoff})
                metricTurnDuration.Observe(float64(time.Since(start).Milliseconds()))
                log.Printf("[turn] done sid=%s chars=%d end_call=%v handoff=%v interstitials=%d",
                    sess.ID, len(clean), endCall, handoff, len(sentPhrases))
                return
            }

        case <-sched.FireC():
            sched.TimerFired()
            if phrase, ok := sched.TakeReady(); ok {
                sentPhrases = append(sentPhrases, phrase)
                metricInterstitials.Inc()
                log.Printf("[turn] interstitial sid=%s phrase=%q", sess.ID, phrase)
                emit(Event{Chunk: phrase, Interstitial: true})
            }
        }
    }
}
