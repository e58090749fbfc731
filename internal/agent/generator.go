// Package agent defines the response-generation capability the turn
// coordinator consumes: a blocking call that reports streaming progress
// through a listener while it runs.
package agent

import "context"

// Listener receives streaming signals while a Generate call is in flight.
// Callbacks are invoked sequentially from the generator's goroutine.
type Listener interface {
    OnToken(text string)
    OnToolStart(name string)
    OnToolEnd(name string)
    OnGenerationStart()
    OnGenerationEnd()
}

// Generator produces a full reply for one user input. The call blocks until
// generation completes or fails; it is not cancellable mid-flight, though
// the passed context bounds any network I/O underneath.
type Generator interface {
    Generate(ctx context.Context, input string, l Listener) (string, error)
}

// NopListener discards all signals.
type NopListener struct{}

func (NopListener) OnToken(string)       {}
func (NopListener) OnToolStart(string)   {}
func (NopListener) OnToolEnd(string)     {}
func (NopListener) OnGenerationStart()   {}
func (NopListener) OnGenerationEnd()     {}
