package tts

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voxloop/voxloop/internal/audio"
	"github.com/voxloop/voxloop/internal/observability"
)

// Speaker is a single-slot, non-queuing serializer around the synthesizer
// and the playback device. At most one utterance plays at a time; a Speak
// call that arrives while another is in flight is dropped rather than
// queued, which prevents speech backlog if a misbehaving caller re-enters.
//
// The busy flag is also how the capture side keeps the microphone gate
// closed for the entire duration of playback, independent of the
// conversation state machine.
type Speaker struct {
	synth   Synthesizer
	player  Player
	metrics *observability.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	speaking bool
}

// NewSpeaker creates a speech output gate over the given synthesizer and player
func NewSpeaker(synth Synthesizer, player Player, metrics *observability.Metrics, logger zerolog.Logger) *Speaker {
	return &Speaker{
		synth:   synth,
		player:  player,
		metrics: metrics,
		logger:  logger,
	}
}

// Speak synthesizes and plays text asynchronously. onComplete is invoked
// exactly once per call, on every path:
//   - empty text: synchronously, nothing is played
//   - already speaking: synchronously, the request is dropped
//   - accepted: from the playback goroutine after the clip finishes (or
//     synthesis fails)
func (s *Speaker) Speak(ctx context.Context, text string, onComplete func()) {
	if strings.TrimSpace(text) == "" {
		if onComplete != nil {
			onComplete()
		}
		return
	}

	s.mu.Lock()
	if s.speaking {
		s.mu.Unlock()
		// No queuing: the orchestrator never calls Speak concurrently by
		// construction, so this is a guard against programming errors.
		s.logger.Warn().Msg("Speaker busy, dropping speech request")
		if onComplete != nil {
			onComplete()
		}
		return
	}
	s.speaking = true
	s.mu.Unlock()

	go s.speakAndComplete(ctx, text, onComplete)
}

func (s *Speaker) speakAndComplete(ctx context.Context, text string, onComplete func()) {
	defer func() {
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
	}()

	if s.metrics != nil {
		s.metrics.RecordTTSStart()
	}

	clip, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		s.logger.Error().Err(err).Msg("Speech synthesis failed")
		if s.metrics != nil {
			s.metrics.RecordTTSEnd(false)
			s.metrics.RecordError("synthesis_error", "tts")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTTSEnd(true)
	}

	// Scale down hot clips so playback does not clip.
	clip.PCM = audio.NormalizeAudio(clip.PCM, 32000)

	if err := s.player.Play(clip); err != nil {
		s.logger.Error().Err(err).Msg("Audio playback failed")
		if s.metrics != nil {
			s.metrics.RecordError("playback_error", "tts")
		}
	}
}

// IsBusy reports whether an utterance is currently being synthesized or
// played. The capture gate consults this before forwarding frames.
func (s *Speaker) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Stop halts in-flight playback and force-clears the busy flag. Best effort;
// used only on session abort.
func (s *Speaker) Stop() {
	s.player.Stop()
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
}
