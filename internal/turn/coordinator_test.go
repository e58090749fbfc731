package turn

import (
    "context"
    "errors"
    "testing"
    "time"

    "brewline/agent/internal/agent"
    "brewline/agent/internal/interstitial"
    "brewline/agent/internal/session"
)

type genFunc func(ctx context.Context, input string, l agent.Listener) (string, error)

func (f genFunc) Generate(ctx context.Context, input string, l agent.Listener) (string, error) {
    return f(ctx, input, l)
}

var testPhrases = []string{"One moment please...", "Just a second..."}

func newTestSession(t *testing.T, gen agent.Generator) *session.Session {
    t.Helper()
    reg := session.NewRegistry(testPhrases)
    sess, err := reg.Create("s1", "CA123", gen)
    if err != nil {
        t.Fatalf("create session: %v", err)
    }
    return sess
}

func drain(ch <-chan Event) []Event {
    var out []Event
    for e := range ch {
        out = append(out, e)
    }
    return out
}

func TestSimpleTurnStreamsOrderedChunks(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("Our return policy ")
        l.OnToken("lasts thirty days. ")
        return "Our return policy lasts thirty days. ", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "what's your return policy"))

    if len(evs) != 3 {
        t.Fatalf("expected 2 chunks + final, got %+v", evs)
    }
    if evs[0].Chunk != "Our return policy " || evs[1].Chunk != "lasts thirty days. " {
        t.Fatalf("chunks out of order: %+v", evs)
    }
    final := evs[len(evs)-1]
    if !final.Final || final.Chunk != "" || final.EndCall || final.Handoff {
        t.Fatalf("unexpected final event: %+v", final)
    }
    for _, e := range evs {
        if e.Interstitial {
            t.Fatalf("no-tool turn must not emit interstitials: %+v", evs)
        }
    }

    h := sess.History()
    if len(h) != 2 {
        t.Fatalf("expected user+assistant history, got %+v", h)
    }
    if h[0].Role != session.RoleUser || h[1].Role != session.RoleAssistant {
        t.Fatalf("unexpected roles: %+v", h)
    }
    if h[1].Content != "Our return policy lasts thirty days. " || h[1].Kind != session.KindNormal {
        t.Fatalf("unexpected assistant entry: %+v", h[1])
    }
}

func TestInterstitialPrecedesFirstChunk(t *testing.T) {
    release := make(chan struct{})
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToolStart("check_stock")
        <-release
        l.OnToolEnd("check_stock")
        l.OnToken("We have it in stock today.")
        return "We have it in stock today.", nil
    })
    sess := newTestSession(t, gen)
    clock := interstitial.NewFakeClock()
    c := New(Options{Clock: clock})

    ch := c.ProcessUtterance(context.Background(), sess, "do you have colombian supremo")

    ft := clock.WaitTimer()
    ft.Fire()

    first := <-ch
    if !first.Interstitial || first.Chunk != "One moment please..." {
        t.Fatalf("expected interstitial first, got %+v", first)
    }
    close(release)

    rest := drain(ch)
    if len(rest) != 2 || rest[0].Interstitial || rest[1].Interstitial {
        t.Fatalf("expected one chunk + final after interstitial, got %+v", rest)
    }
    if rest[0].Chunk != "We have it in stock today." {
        t.Fatalf("unexpected chunk: %+v", rest[0])
    }

    h := sess.History()
    if len(h) != 3 {
        t.Fatalf("expected user+assistant+interstitial, got %+v", h)
    }
    if h[2].Kind != session.KindInterstitial || h[2].Content != "One moment please..." {
        t.Fatalf("interstitial entry missing: %+v", h)
    }
}

func TestRotationCursorPersistsAcrossTurns(t *testing.T) {
    release := make(chan struct{}, 2)
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToolStart("check_stock")
        <-release
        l.OnToken("Found it.")
        return "Found it.", nil
    })
    sess := newTestSession(t, gen)
    clock := interstitial.NewFakeClock()
    c := New(Options{Clock: clock})

    runOnce := func(want string) {
        ch := c.ProcessUtterance(context.Background(), sess, "check stock")
        ft := clock.WaitTimer()
        ft.Fire()
        first := <-ch
        if !first.Interstitial || first.Chunk != want {
            t.Fatalf("expected %q, got %+v", want, first)
        }
        release <- struct{}{}
        drain(ch)
    }

    runOnce("One moment please...")
    runOnce("Just a second...")
}

func TestFastTokenSuppressesInterstitial(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToolStart("check_stock")
        l.OnToolEnd("check_stock")
        l.OnToken("Quick answer here, done.")
        return "Quick answer here, done.", nil
    })
    sess := newTestSession(t, gen)
    clock := interstitial.NewFakeClock()
    c := New(Options{Clock: clock})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "quick one"))
    for _, e := range evs {
        if e.Interstitial {
            t.Fatalf("fast turn must not emit interstitial: %+v", evs)
        }
    }
}

func TestGenerationFailureEmitsFallbackOnly(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("partial ")
        return "", errors.New("backend exploded")
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "hello"))

    if len(evs) != 1 {
        t.Fatalf("expected single fallback event, got %+v", evs)
    }
    final := evs[0]
    if !final.Final || final.Chunk != FallbackReply {
        t.Fatalf("expected apologetic final, got %+v", final)
    }
    for _, e := range sess.History() {
        if e.Role == session.RoleAssistant {
            t.Fatalf("failed turn must not append assistant history: %+v", sess.History())
        }
    }
}

func TestCallEndViaTextMarker(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("CALL_END:")
        l.OnToken("Thank you for calling CoffeeMarket! ")
        l.OnToken("Goodbye!")
        return "CALL_END:Thank you for calling CoffeeMarket! Goodbye!", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "bye"))
    final := evs[len(evs)-1]
    if !final.Final || !final.EndCall || final.Handoff {
        t.Fatalf("expected end_call final, got %+v", final)
    }

    h := sess.History()
    got := h[len(h)-1].Content
    if got != "Thank you for calling CoffeeMarket! Goodbye!" {
        t.Fatalf("marker not stripped from history: %q", got)
    }
}

func TestCallEndViaToolChannelWithoutMarker(t *testing.T) {
    clock := interstitial.NewFakeClock()
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToolStart(ToolEndCall)
        l.OnToolEnd(ToolEndCall)
        l.OnToken("Goodbye now.")
        return "Goodbye now.", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: clock})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "bye"))
    final := evs[len(evs)-1]
    if !final.EndCall {
        t.Fatalf("tool-channel end_call not honored: %+v", final)
    }
    // Absence of the marker is tolerated: the flag is the source of truth.
    h := sess.History()
    if h[len(h)-1].Content != "Goodbye now." {
        t.Fatalf("history mangled: %+v", h)
    }
    // Call-ending tools never arm the filler timer.
    if clock.PendingTimers() != 0 {
        t.Fatalf("end_call must not arm an interstitial timer")
    }
}

func TestHandoffViaTextMarker(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("HANDOFF_HUMAN:Transferring you to an agent now.")
        return "HANDOFF_HUMAN:Transferring you to an agent now.", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})

    evs := drain(c.ProcessUtterance(context.Background(), sess, "human please"))
    final := evs[len(evs)-1]
    if !final.Handoff || final.EndCall {
        t.Fatalf("expected handoff final, got %+v", final)
    }
    h := sess.History()
    if h[len(h)-1].Content != "Transferring you to an agent now." {
        t.Fatalf("marker not stripped: %+v", h)
    }
}

func TestInterruptionRedactsThenReportsNothingLeft(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("Thank you for calling CoffeeMarket! Goodbye!")
        return "Thank you for calling CoffeeMarket! Goodbye!", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})
    drain(c.ProcessUtterance(context.Background(), sess, "bye"))

    res, err := c.ProcessInterruption(sess, "thank you for calling")
    if err != nil {
        t.Fatalf("redaction failed: %v", err)
    }
    if res.Spoken != "Thank you for calling" || res.Removed {
        t.Fatalf("unexpected redaction result: %+v", res)
    }
    h := sess.History()
    if h[len(h)-1].Content != "Thank you for calling" || !h[len(h)-1].Redacted {
        t.Fatalf("history not updated: %+v", h)
    }

    // Idempotence: the only real assistant entry is already redacted.
    if _, err := c.ProcessInterruption(sess, "thank you for calling"); !errors.Is(err, session.ErrNoAssistantEntry) {
        t.Fatalf("expected ErrNoAssistantEntry, got %v", err)
    }
}

func TestInterruptionRemovesUnspokenReply(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        l.OnToken("We close at nine tonight.")
        return "We close at nine tonight.", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})
    drain(c.ProcessUtterance(context.Background(), sess, "hours?"))

    res, err := c.ProcessInterruption(sess, "completely unrelated words")
    if err != nil {
        t.Fatalf("redaction failed: %v", err)
    }
    if !res.Removed {
        t.Fatalf("expected full removal, got %+v", res)
    }
    for _, e := range sess.History() {
        if e.Role == session.RoleAssistant {
            t.Fatalf("assistant entry should be gone: %+v", sess.History())
        }
    }
}

func TestInterruptionSkipsInterstitialOnlyHistory(t *testing.T) {
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        return "", nil
    })
    sess := newTestSession(t, gen)
    sess.AppendUser("check stock")
    sess.AppendInterstitial("One moment please...")

    c := New(Options{Clock: interstitial.NewFakeClock()})
    if _, err := c.ProcessInterruption(sess, "one moment"); !errors.Is(err, session.ErrNoAssistantEntry) {
        t.Fatalf("expected ErrNoAssistantEntry, got %v", err)
    }
    h := sess.History()
    if len(h) != 2 || h[1].Content != "One moment please..." {
        t.Fatalf("interstitial entry must be untouched: %+v", h)
    }
}

func TestTurnsSerializePerSession(t *testing.T) {
    release := make(chan struct{})
    gen := genFunc(func(ctx context.Context, input string, l agent.Listener) (string, error) {
        if input == "first" {
            <-release
        }
        l.OnToken("ok done.")
        return "ok done.", nil
    })
    sess := newTestSession(t, gen)
    c := New(Options{Clock: interstitial.NewFakeClock()})

    ch1 := c.ProcessUtterance(context.Background(), sess, "first")
    ch2 := c.ProcessUtterance(context.Background(), sess, "second")

    select {
    case e := <-ch2:
        t.Fatalf("second turn started before first finalized: %+v", e)
    case <-time.After(100 * time.Millisecond):
    }

    close(release)
    drain(ch1)
    evs2 := drain(ch2)
    if len(evs2) == 0 || !evs2[len(evs2)-1].Final {
        t.Fatalf("second turn should complete after first: %+v", evs2)
    }
}
