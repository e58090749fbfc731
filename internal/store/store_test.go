package store

import (
    "fmt"
    "testing"
)

func TestAppendAndList(t *testing.T) {
    s := New()
    s.AppendEvent("s1", "turn_started", map[string]any{"text": "hi"})
    s.AppendEvent("s1", "turn_done", nil)

    evs := s.ListEvents("s1")
    if len(evs) != 2 {
        t.Fatalf("expected 2 events, got %d", len(evs))
    }
    if evs[0].Type != "turn_started" || evs[1].Type != "turn_done" {
        t.Fatalf("unexpected order: %+v", evs)
    }
}

func TestListCopiesSlice(t *testing.T) {
    s := New()
    s.AppendEvent("s1", "a", nil)
    evs := s.ListEvents("s1")
    evs[0].Type = "mutated"
    if s.ListEvents("s1")[0].Type != "a" {
        t.Fatalf("ListEvents must return a copy")
    }
}

func TestTruncationCap(t *testing.T) {
    s := New()
    for i := 0; i < maxEvents+50; i++ {
        s.AppendEvent("s1", fmt.Sprintf("e%d", i), nil)
    }
    evs := s.ListEvents("s1")
    if len(evs) != maxEvents {
        t.Fatalf("expected cap at %d, got %d", maxEvents, len(evs))
    }
    if evs[len(evs)-1].Type != "events_truncated" {
        t.Fatalf("expected truncation marker last, got %q", evs[len(evs)-1].Type)
    }
}

func TestDrop(t *testing.T) {
    s := New()
    s.AppendEvent("s1", "a", nil)
    s.Drop("s1")
    if len(s.ListEvents("s1")) != 0 {
        t.Fatalf("expected empty after drop")
    }
}
