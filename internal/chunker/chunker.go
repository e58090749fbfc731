// Package chunker batches raw model output fragments into speech-sized
// chunks so downstream TTS gets natural phrase boundaries.
package chunker

import "strings"

// MaxChunkChars bounds any emitted chunk; longer buffers are truncated with
// an ellipsis so unbounded upstream fragments cannot blow out a message.
const MaxChunkChars = 200

const defaultWordThreshold = 3

// terminal punctuation that forces a flush of the pending buffer.
var boundaryRunes = ".!?,;:"

type Chunker struct {
    buf           strings.Builder
    wordThreshold int
    maxChars      int
    truncations   int
}

func New() *Chunker {
    return &Chunker{wordThreshold: defaultWordThreshold, maxChars: MaxChunkChars}
}

// NewWithLimits overrides the word threshold and character cap. Values too
// small to be usable fall back to the defaults; the cap must leave room for
// the truncation ellipsis.
func NewWithLimits(wordThreshold, maxChars int) *Chunker {
    c := New()
    if wordThreshold > 0 {
        c.wordThreshold = wordThreshold
    }
    if maxChars > 3 {
        c.maxChars = maxChars
    }
    return c
}

// Feed appends a fragment to the pending buffer and reports a completed
// chunk when the buffer reaches the word threshold or the fragment ends in
// terminal punctuation. Whitespace-only buffers are never emitted.
func (c *Chunker) Feed(fragment string) (string, bool) {
    c.buf.WriteString(fragment)

    words := len(strings.Fields(c.buf.String()))
    trimmed := strings.TrimSpace(fragment)
    atBoundary := trimmed != "" && strings.ContainsRune(boundaryRunes, rune(trimmed[len(trimmed)-1]))

    if words < c.wordThreshold && !atBoundary {
        return "", false
    }
    return c.take()
}

// Flush drains whatever is pending at end of stream.
func (c *Chunker) Flush() (string, bool) {
    return c.take()
}

// Truncations reports how many chunks were cut at the character cap.
func (c *Chunker) Truncations() int { return c.truncations }

func (c *Chunker) take() (string, bool) {
    out := c.buf.String()
    c.buf.Reset()
    if strings.TrimSpace(out) == "" {
        return "", false
    }
    if r := []rune(out); len(r) > c.maxChars {
        out = string(r[:c.maxChars-3]) + "..."
        c.truncations++
    }
    return out, true
}
