package turn

// Event is one outbound item of a streaming turn. Ordering is guaranteed:
// chunks arrive in generation order, an interstitial (if any) strictly
// precedes the first real chunk, and exactly one Final event closes the
// stream carrying the turn-outcome flags.
type Event struct {
    Chunk        string
    Final        bool
    Interstitial bool
    EndCall      bool
    Handoff      bool
}
