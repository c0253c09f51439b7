// Package session implements the turn-taking orchestrator: a single-owner
// state machine that alternates between listening for the user and speaking
// as the agent, driving the segmenter, transcriber, responder, and speaker.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxloop/voxloop/internal/audio"
	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/observability"
	"github.com/voxloop/voxloop/internal/responder"
	"github.com/voxloop/voxloop/internal/stt"
	"github.com/voxloop/voxloop/internal/transcript"
	"github.com/voxloop/voxloop/internal/tts"
)

// State is the conversation phase of a session
type State int

const (
	StateGreeting  State = iota // Delivering the opening line
	StateListening              // Microphone gate open, waiting for a segment
	StateThinking               // Transcribing and generating a reply
	StateSpeaking               // Agent utterance in flight
	StateEnded                  // Terminal; the session loop has returned
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// EventSink receives conversation events for display. All methods are called
// from the session goroutine, never concurrently.
type EventSink interface {
	AgentSaid(text string)
	UserSaid(text string)
	Notice(text string)
}

// Phrases in a user utterance that end the conversation. Matched
// case-insensitively as substrings of the transcription.
var terminationPhrases = []string{"goodbye", "thank you"}

// Session owns one conversation from greeting to farewell. HandleFrame is
// safe to call from the audio capture callback concurrently with Run; all
// other interaction with collaborators happens on the Run goroutine.
type Session struct {
	id          string
	segmenter   *audio.Segmenter
	transcriber stt.Transcriber
	responder   responder.Responder
	speaker     *tts.Speaker
	sink        EventSink
	log         *transcript.Log
	metrics     *observability.Metrics
	logger      zerolog.Logger

	listenTimeout time.Duration
	historyTurns  int
	transcriptDir string

	segments chan *audio.SpeechSegment
	spoken   chan struct{}

	mu     sync.RWMutex
	state  State
	ending bool // set once a termination phrase is heard
}

// NewSession wires a session from its collaborators. The id and metrics are
// shared with the speaker so TTS activity is attributed to the same session.
// The segmenter is owned by the session; the capture layer delivers frames
// via HandleFrame.
func NewSession(
	cfg *config.Config,
	id string,
	segmenter *audio.Segmenter,
	transcriber stt.Transcriber,
	resp responder.Responder,
	speaker *tts.Speaker,
	sink EventSink,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Session {
	s := &Session{
		id:            id,
		segmenter:     segmenter,
		transcriber:   transcriber,
		responder:     resp,
		speaker:       speaker,
		sink:          sink,
		log:           transcript.NewLog(),
		metrics:       metrics,
		logger:        logger.With().Str("session_id", id).Logger(),
		listenTimeout: time.Duration(cfg.ListenTimeoutSec) * time.Second,
		historyTurns:  cfg.HistoryTurns,
		transcriptDir: cfg.TranscriptDir,
		segments:      make(chan *audio.SpeechSegment, cfg.SegmentQueueSize),
		spoken:        make(chan struct{}, 1),
		state:         StateGreeting,
	}
	return s
}

// ID returns the session's unique identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current conversation state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.logger.Debug().
			Str("from", prev.String()).
			Str("to", next.String()).
			Msg("Session state transition")
	}
}

// Transcript returns the session's conversation log
func (s *Session) Transcript() *transcript.Log {
	return s.log
}

// HandleFrame is the capture callback. Frames are fed to the segmenter only
// while the session is listening and the speaker is silent; everything else
// is dropped so the agent never hears itself.
func (s *Session) HandleFrame(frame []float32) {
	if s.State() != StateListening || s.speaker.IsBusy() {
		// Closing the gate mid-utterance discards the partial recording;
		// a half-heard utterance is worse than none.
		if s.segmenter.Recording() {
			s.segmenter.Reset()
		}
		return
	}

	segment := s.segmenter.ProcessFrame(frame)
	if segment == nil {
		return
	}

	select {
	case s.segments <- segment:
		s.metrics.RecordSegmentEmitted(segment.Duration.Seconds())
		s.logger.Debug().
			Float64("duration_sec", segment.Duration.Seconds()).
			Int("bytes", len(segment.PCM)).
			Msg("Speech segment queued")
	default:
		s.metrics.RecordSegmentDiscarded()
		s.logger.Warn().Msg("Segment queue full, dropping speech segment")
	}
}

// Run executes the conversation loop until a termination phrase is heard or
// the context is cancelled. It always saves the transcript on the way out.
func (s *Session) Run(ctx context.Context) error {
	s.metrics.RecordSessionStart()
	defer s.metrics.RecordSessionEnd()

	s.logger.Info().Msg("Session started")

	s.greet(ctx)

	for {
		switch s.State() {
		case StateSpeaking, StateGreeting:
			select {
			case <-s.spoken:
				if s.ending {
					s.finish()
					return nil
				}
				s.setState(StateListening)
			case <-ctx.Done():
				return s.abort(ctx)
			}

		case StateListening:
			select {
			case segment := <-s.segments:
				s.setState(StateThinking)
				s.processSegment(ctx, segment)
			case <-time.After(s.listenTimeout):
				s.metrics.RecordListenTimeout()
				s.logger.Info().Msg("Listen timeout, prompting user")
				s.sink.Notice("No speech detected for a while. Are you still there?")
			case <-ctx.Done():
				return s.abort(ctx)
			}

		case StateEnded:
			return nil
		}
	}
}

// greet delivers the opening line. A responder failure falls back to the
// fixed greeting; the session never starts silent.
func (s *Session) greet(ctx context.Context) {
	s.metrics.RecordResponderStart()
	line, err := s.responder.OpeningLine(ctx)
	if err != nil {
		s.metrics.RecordResponderEnd(false)
		s.logger.Error().Err(err).Msg("Opening line generation failed, using fallback")
		line = responder.FallbackOpening
	} else {
		s.metrics.RecordResponderEnd(true)
	}

	s.sayAs(ctx, StateGreeting, line)
}

// processSegment runs one user turn: transcribe, check for termination,
// generate a reply, speak. It leaves the session in StateSpeaking or, when
// the segment was unusable, back in StateListening.
func (s *Session) processSegment(ctx context.Context, segment *audio.SpeechSegment) {
	s.metrics.RecordSTTStart()
	text, err := s.transcriber.Transcribe(ctx, segment)
	if err != nil {
		s.metrics.RecordSTTEnd(false)
		s.logger.Error().Err(err).Msg("Transcription failed")
		s.say(ctx, responder.FallbackTranscription)
		return
	}
	s.metrics.RecordSTTEnd(true)

	text = strings.TrimSpace(text)
	if len(text) <= 2 {
		// Too short to act on; silence or a stray noise burst.
		s.logger.Debug().Str("text", text).Msg("Discarding unusable transcription")
		s.sink.Notice("Could not understand. Please speak again.")
		s.setState(StateListening)
		return
	}

	s.log.Append(transcript.SpeakerUser, text)
	s.sink.UserSaid(text)
	s.metrics.RecordTurn("user")
	s.logger.Info().Str("text", text).Msg("User turn")

	if isTermination(text) {
		s.ending = true
		s.say(ctx, s.responder.ClosingLine())
		return
	}

	s.metrics.RecordResponderStart()
	reply, err := s.responder.Respond(ctx, s.log.Last(s.historyTurns), text)
	if err != nil {
		s.metrics.RecordResponderEnd(false)
		s.logger.Error().Err(err).Msg("Response generation failed, using fallback")
		reply = responder.FallbackReply
	} else {
		s.metrics.RecordResponderEnd(true)
	}

	s.say(ctx, reply)
}

// say records and speaks one agent utterance, transitioning to StateSpeaking
// before playback starts so the microphone gate is already closed.
func (s *Session) say(ctx context.Context, text string) {
	s.sayAs(ctx, StateSpeaking, text)
}

func (s *Session) sayAs(ctx context.Context, state State, text string) {
	s.log.Append(transcript.SpeakerAgent, text)
	s.sink.AgentSaid(text)
	s.metrics.RecordTurn("agent")
	s.logger.Info().Str("text", text).Msg("Agent turn")

	s.setState(state)
	s.speaker.Speak(ctx, text, s.speakDone)
}

// speakDone is the speaker's completion callback. The send never blocks; the
// channel holds one token and the loop consumes it before the next Speak.
func (s *Session) speakDone() {
	select {
	case s.spoken <- struct{}{}:
	default:
	}
}

// finish ends the session normally after the farewell has been spoken
func (s *Session) finish() {
	s.setState(StateEnded)
	s.saveTranscript()
	s.logger.Info().Int("turns", s.log.Len()).Msg("Session ended")
}

// abort ends the session on context cancellation: playback is cut off and
// no farewell is spoken, but the transcript is still saved.
func (s *Session) abort(ctx context.Context) error {
	s.speaker.Stop()
	s.setState(StateEnded)
	s.saveTranscript()
	s.logger.Info().Int("turns", s.log.Len()).Msg("Session aborted")
	return ctx.Err()
}

func (s *Session) saveTranscript() {
	if s.log.Len() == 0 {
		return
	}
	path, err := s.log.Save(s.transcriptDir)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save transcript")
		s.metrics.RecordError("transcript_save", "session")
		return
	}
	s.logger.Info().Str("path", path).Msg("Transcript saved")
}

// isTermination reports whether a user utterance asks to end the conversation
func isTermination(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range terminationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
