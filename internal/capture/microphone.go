// Package capture wraps the PortAudio sound device: a push-based microphone
// input stream on one side and a blocking playback device on the other.
package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// FrameHandler receives one block of normalized mono samples per hardware
// callback. The slice is owned by the handler; it is copied out of the
// device buffer before delivery. Handlers must not block: processing has to
// finish within one frame period or the audio layer drops data.
type FrameHandler func(frame []float32)

// Init initializes the PortAudio runtime. Call once per process, paired with
// Terminate.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio runtime
func Terminate() {
	_ = portaudio.Terminate()
}

// Microphone is a mono input stream delivering fixed-size frames to a
// registered handler on the hardware callback thread.
type Microphone struct {
	stream  *portaudio.Stream
	handler FrameHandler
}

// OpenMicrophone opens the default input device at the given sample rate and
// block size. An open failure is fatal for the session; callers are expected
// to abort before the first turn.
func OpenMicrophone(sampleRate, frameSize int, handler FrameHandler) (*Microphone, error) {
	m := &Microphone{handler: handler}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, m.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	m.stream = stream

	return m, nil
}

// callback runs on the PortAudio capture thread. The device buffer is reused
// between invocations, so the frame is copied before it leaves this function.
func (m *Microphone) callback(in []float32) {
	frame := make([]float32, len(in))
	copy(frame, in)
	m.handler(frame)
}

// Start begins capture
func (m *Microphone) Start() error {
	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

// Close stops capture and releases the input stream
func (m *Microphone) Close() error {
	if m.stream == nil {
		return nil
	}
	_ = m.stream.Stop()
	if err := m.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	m.stream = nil
	return nil
}
