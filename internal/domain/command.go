package domain

import "strings"

type CommandKind int

const (
	CommandQuery CommandKind = iota
	CommandPopulate
	CommandClear
)

func (k CommandKind) String() string {
	switch k {
	case CommandPopulate:
		return "populate"
	case CommandClear:
		return "clear"
	default:
		return "query"
	}
}

// Command is a parsed user intent. Text is the trimmed input.
type Command struct {
	Kind CommandKind
	Text string
}

// ParseCommand maps raw input to an intent. Only the exact words "populate"
// and "clear" (any case, surrounding whitespace ignored) are commands;
// everything else, the empty string included, is a query.
func ParseCommand(raw string) Command {
	text := strings.TrimSpace(raw)
	switch strings.ToLower(text) {
	case "populate":
		return Command{Kind: CommandPopulate, Text: text}
	case "clear":
		return Command{Kind: CommandClear, Text: text}
	}
	return Command{Kind: CommandQuery, Text: text}
}

const (
	// NoContextAnswer is returned for a query when nothing relevant is indexed.
	NoContextAnswer = "I could not find any relevant information in the indexed documents."

	// GenerationFallbackAnswer is shown when the language model fails.
	GenerationFallbackAnswer = "Sorry, the language model could not produce an answer right now. Please try again later."
)

// Reply is what the pipeline hands back to the presentation layer.
type Reply struct {
	Command Command
	Text    string
	Sources []string
}
