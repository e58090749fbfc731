// Package align computes how much of a generated reply was actually spoken
// before the caller interrupted, so conversation history can be corrected.
package align

import "strings"

// SpokenPrefix returns the prefix of full (original casing) covering what the
// caller heard, given the utterance delivered up to the interruption.
// Returns "" when nothing can be matched.
func SpokenPrefix(full, utterance string) string {
    if full == "" || utterance == "" {
        return ""
    }

    fullLower := strings.ToLower(full)
    uttLower := strings.ToLower(utterance)

    // Common case: the utterance is a verbatim substring of the reply.
    if idx := strings.Index(fullLower, uttLower); idx >= 0 {
        return full[:idx+len(uttLower)]
    }

    // Fallback: suffix-anchored word alignment. For growing prefixes of the
    // reply, count how many trailing words agree with the trailing words of
    // the utterance. A full match of all utterance words wins at the
    // smallest prefix; otherwise the best partial match seen is kept.
    fullWords := strings.Fields(fullLower)
    uttWords := strings.Fields(uttLower)
    origWords := strings.Fields(full)
    if len(fullWords) == 0 || len(uttWords) == 0 {
        return ""
    }

    best := 0
    for end := 1; end <= len(fullWords); end++ {
        n := end
        if len(uttWords) < n {
            n = len(uttWords)
        }
        matched := 0
        for i := 0; i < n; i++ {
            if uttWords[len(uttWords)-1-i] == fullWords[end-1-i] {
                matched++
            } else {
                break
            }
        }
        if matched == len(uttWords) {
            best = end
            break
        }
        if matched > 0 {
            best = end
        }
    }
    if best == 0 {
        return ""
    }
    return strings.Join(origWords[:best], " ")
}
