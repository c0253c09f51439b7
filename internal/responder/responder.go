// Package responder generates the agent's side of the conversation. The
// session treats it as a black box: history plus the newest user input go in,
// one reply comes out. Every operation has a fixed fallback string so a
// backend failure never stalls the conversation.
package responder

import (
	"context"

	"github.com/voxloop/voxloop/internal/transcript"
)

// Responder produces the agent's utterances
type Responder interface {
	// OpeningLine returns the greeting that starts the session
	OpeningLine(ctx context.Context) (string, error)

	// Respond generates a reply from a bounded transcript suffix and the
	// newest user input
	Respond(ctx context.Context, history []transcript.Turn, input string) (string, error)

	// ClosingLine returns the fixed farewell spoken before the session ends
	ClosingLine() string
}

// Fixed utterances used when a backend call fails. The conversation always
// continues; these keep the turn-taking loop alive.
const (
	FallbackOpening = "Hello! Welcome to your technical interview. I'm excited to learn about you! " +
		"Could you please start by introducing yourself - your name, background, and " +
		"experience level with computer science and programming?"

	FallbackClosing = "It was a pleasure speaking with you. Goodbye!"

	FallbackReply = "I'm sorry, I'm having trouble processing that. Could you please try " +
		"saying it again, perhaps with a bit more detail?"

	FallbackTranscription = "I'm sorry, I couldn't make out what you said. Could you please repeat that?"
)
