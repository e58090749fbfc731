package turn

import "strings"

// Sentinel markers are a wire convention with the generation engine: the
// reply may carry exactly one literal prefix signaling structured intent,
// followed by the user-facing message to deliver.
const (
    CallEndMarker = "CALL_END:"
    HandoffMarker = "HANDOFF_HUMAN:"
)

// Tool names that signal the same intents over the tool-invocation channel.
// Either channel may fire first; both are honored.
const (
    ToolEndCall = "end_call"
    ToolHandoff = "escalate_to_human_agent"
)

// Intent captures turn-outcome flags parsed from generated text.
type Intent struct {
    EndCall bool
    Handoff bool
}

// DetectIntent reports marker presence without modifying the text.
func DetectIntent(text string) Intent {
    return Intent{
        EndCall: strings.Contains(text, CallEndMarker),
        Handoff: strings.Contains(text, HandoffMarker),
    }
}

// StripMarker removes a sentinel prefix from the full reply, returning the
// clean user-facing message and the detected intent. Absence of a marker is
// fine: stripping is best-effort, the tool-channel flag may already carry
// the intent.
func StripMarker(text string) (string, Intent) {
    if _, after, ok := strings.Cut(text, CallEndMarker); ok {
        return strings.TrimSpace(after), Intent{EndCall: true}
    }
    if _, after, ok := strings.Cut(text, HandoffMarker); ok {
        return strings.TrimSpace(after), Intent{Handoff: true}
    }
    return text, Intent{}
}
