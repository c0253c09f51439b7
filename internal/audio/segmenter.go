package audio

import (
	"time"
)

// SegmenterConfig holds the tuning for energy-based utterance segmentation
type SegmenterConfig struct {
	EnergyThreshold float64       // RMS threshold on normalized float32 samples
	MinUtterance    time.Duration // Segments shorter than this are discarded as noise
	MaxUtterance    time.Duration // Hard cap; force-finalize when the buffer reaches it
	SilenceDuration time.Duration // Trailing silence that ends an utterance
	SampleRate      int           // Sample rate of incoming frames in Hz
}

// DefaultSegmenterConfig returns the segmentation tuning used when none is given
func DefaultSegmenterConfig() *SegmenterConfig {
	return &SegmenterConfig{
		EnergyThreshold: 0.01,
		MinUtterance:    5 * time.Second,
		MaxUtterance:    20 * time.Second,
		SilenceDuration: 5 * time.Second,
		SampleRate:      16000,
	}
}

// SpeechSegment is one finalized utterance: mono 16-bit little-endian PCM.
// It is immutable once emitted; ownership passes to whoever receives it.
type SpeechSegment struct {
	PCM        []byte
	SampleRate int
	Duration   time.Duration
}

type segmenterState int

const (
	stateIdle segmenterState = iota
	stateRecording
)

// Segmenter turns a stream of audio frames into discrete speech segments
// using a purely energy-based heuristic. It is not safe for concurrent use;
// the capture callback is the only expected caller of ProcessFrame.
//
// Silence is measured in buffered samples rather than wall-clock time, so the
// state machine is deterministic for a given frame sequence regardless of how
// fast the frames arrive.
type Segmenter struct {
	config *SegmenterConfig

	state          segmenterState
	buffer         [][]float32
	bufferedCount  int // total samples across buffer
	silenceSamples int // consecutive silent samples since the last voiced frame
}

// NewSegmenter creates a segmenter with the given config, or defaults if nil
func NewSegmenter(config *SegmenterConfig) *Segmenter {
	if config == nil {
		config = DefaultSegmenterConfig()
	}
	return &Segmenter{
		config: config,
		state:  stateIdle,
	}
}

// ProcessFrame consumes one frame of normalized mono samples and returns a
// finalized SpeechSegment when an end-of-turn condition fires, or nil.
//
// A nil or empty frame is treated as silence. The function never fails; it
// only may fail to emit.
func (s *Segmenter) ProcessFrame(frame []float32) *SpeechSegment {
	energy := CalculateRMS(frame)

	var segment *SpeechSegment

	if energy > s.config.EnergyThreshold {
		if s.state == stateIdle {
			s.state = stateRecording
			s.resetBuffer()
		}
		s.appendFrame(frame)
		s.silenceSamples = 0
	} else {
		switch s.state {
		case stateIdle:
			// Silence before speech is discarded, never buffered.
			return nil
		case stateRecording:
			if s.silenceDuration() >= s.config.SilenceDuration {
				segment = s.finalize(true)
			} else {
				// Natural pause inside the utterance: keep it.
				s.appendFrame(frame)
				s.silenceSamples += len(frame)
			}
		}
	}

	// Hard cap on utterance length, independent of the silence condition.
	if s.state == stateRecording && s.bufferedDuration() > s.config.MaxUtterance {
		segment = s.finalize(false)
	}

	return segment
}

// Recording reports whether the segmenter is currently buffering an utterance
func (s *Segmenter) Recording() bool {
	return s.state == stateRecording
}

// Reset discards any buffered audio and returns the segmenter to idle
func (s *Segmenter) Reset() {
	s.state = stateIdle
	s.resetBuffer()
}

// finalize concatenates the buffer into a SpeechSegment and resets state.
// When checkMin is true the segment is discarded if the total buffered span
// (voiced audio plus any buffered silence) is below MinUtterance; the forced
// max-length path emits unconditionally.
func (s *Segmenter) finalize(checkMin bool) *SpeechSegment {
	s.state = stateIdle

	duration := s.bufferedDuration()
	if s.bufferedCount == 0 || (checkMin && duration < s.config.MinUtterance) {
		// Too short: noise or a breath, not an error.
		s.resetBuffer()
		return nil
	}

	samples := make([]float32, 0, s.bufferedCount)
	for _, f := range s.buffer {
		samples = append(samples, f...)
	}
	s.resetBuffer()

	return &SpeechSegment{
		PCM:        Float32ToPCM16(samples),
		SampleRate: s.config.SampleRate,
		Duration:   duration,
	}
}

func (s *Segmenter) appendFrame(frame []float32) {
	if len(frame) == 0 {
		return
	}
	buffered := make([]float32, len(frame))
	copy(buffered, frame)
	s.buffer = append(s.buffer, buffered)
	s.bufferedCount += len(frame)
}

func (s *Segmenter) resetBuffer() {
	s.buffer = nil
	s.bufferedCount = 0
	s.silenceSamples = 0
}

func (s *Segmenter) bufferedDuration() time.Duration {
	return samplesToDuration(s.bufferedCount, s.config.SampleRate)
}

func (s *Segmenter) silenceDuration() time.Duration {
	return samplesToDuration(s.silenceSamples, s.config.SampleRate)
}

func samplesToDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
