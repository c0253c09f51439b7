package stt

import (
	"context"

	"github.com/voxloop/voxloop/internal/audio"
)

// Transcriber is the interface for speech-to-text backends. Implementations
// take a finalized speech segment and return the recognized text.
//
// Empty or near-empty text means "no speech detected"; deciding whether to
// discard it is the caller's responsibility, not the engine's.
type Transcriber interface {
	// Transcribe converts a speech segment to text
	Transcribe(ctx context.Context, segment *audio.SpeechSegment) (string, error)

	// Close releases any resources held by the backend
	Close() error
}
