package tts

import (
	"context"
)

// AudioClip is one synthesized utterance: mono PCM samples and their rate
type AudioClip struct {
	PCM        []int16
	SampleRate int
}

// Duration returns the clip length in seconds
func (c *AudioClip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(c.SampleRate)
}

// Synthesizer converts text to a playable audio clip
type Synthesizer interface {
	// Synthesize converts text to audio
	Synthesize(ctx context.Context, text string) (*AudioClip, error)

	// Close releases client resources
	Close() error
}

// Player plays a clip to completion on the output device. Play blocks until
// the clip has finished or Stop aborted it.
type Player interface {
	Play(clip *AudioClip) error
	Stop()
}
