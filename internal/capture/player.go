package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/voxloop/voxloop/internal/audio"
	"github.com/voxloop/voxloop/internal/tts"
)

// Player plays synthesized clips on the default output device. It implements
// tts.Player. Playback is blocking: Play returns once the whole clip has been
// written to the device or Stop was called.
type Player struct {
	frameSize int
	stopped   atomic.Bool
}

// NewPlayer creates a playback device wrapper. frameSize is the block size
// used when feeding the output stream.
func NewPlayer(frameSize int) *Player {
	return &Player{frameSize: frameSize}
}

// Play opens an output stream at the clip's sample rate, drains the clip
// through a ring buffer in fixed-size blocks, and plays to completion.
// A Stop call aborts playback between blocks.
func (p *Player) Play(clip *tts.AudioClip) error {
	if clip == nil || len(clip.PCM) == 0 {
		return nil
	}
	p.stopped.Store(false)

	out := make([]int16, p.frameSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(clip.SampleRate), p.frameSize, &out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	// Stage the clip through a ring buffer so the device always gets full
	// blocks; the tail block is zero-padded.
	ring := audio.NewRingBuffer(len(clip.PCM) + 1)
	ring.Write(clip.PCM)

	for !ring.IsEmpty() {
		if p.stopped.Load() {
			return stream.Abort()
		}

		for i := range out {
			out[i] = 0
		}
		ring.Read(out)

		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write to output stream: %w", err)
		}
	}

	return nil
}

// Stop aborts in-flight playback. Safe to call when nothing is playing.
func (p *Player) Stop() {
	p.stopped.Store(true)
}
