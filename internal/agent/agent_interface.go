package agent

import "context"

// IntentParser turns a chat message into a ParsedIntent.
// Implementations never return ActionUnknown together with an error; an
// unreadable message is ActionUnknown with a nil error.
type IntentParser interface {
	Parse(ctx context.Context, text string) (ParsedIntent, error)
}

var (
	_ IntentParser = (*HeuristicParser)(nil)
	_ IntentParser = (*GeminiParser)(nil)
)
