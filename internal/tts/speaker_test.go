package tts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{} // if set, Synthesize waits until it is closed
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (*AudioClip, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &AudioClip{PCM: []int16{100, 200, 300}, SampleRate: 24000}, nil
}

func (f *fakeSynth) Close() error { return nil }

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePlayer struct {
	mu      sync.Mutex
	played  int
	stopped bool
}

func (f *fakePlayer) Play(clip *AudioClip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played++
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played
}

func newTestSpeaker(synth Synthesizer, player Player) *Speaker {
	return NewSpeaker(synth, player, nil, zerolog.Nop())
}

func waitForIdle(t *testing.T, s *Speaker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.IsBusy() {
		if time.Now().After(deadline) {
			t.Fatal("Speaker did not become idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSpeaker_SpeakPlaysAndCompletes(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	done := make(chan struct{})
	speaker.Speak(context.Background(), "hello", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Completion callback never fired")
	}

	waitForIdle(t, speaker)
	if synth.callCount() != 1 {
		t.Errorf("Expected 1 synthesis call, got %d", synth.callCount())
	}
	if player.playCount() != 1 {
		t.Errorf("Expected 1 playback, got %d", player.playCount())
	}
}

func TestSpeaker_EmptyTextCompletesWithoutPlaying(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	completed := false
	speaker.Speak(context.Background(), "   ", func() { completed = true })

	// Empty text completes synchronously
	if !completed {
		t.Error("Expected synchronous completion for empty text")
	}
	if synth.callCount() != 0 {
		t.Errorf("Expected no synthesis for empty text, got %d calls", synth.callCount())
	}
	if speaker.IsBusy() {
		t.Error("Expected speaker to stay idle for empty text")
	}
}

func TestSpeaker_ConcurrentSpeaksPlayOnce(t *testing.T) {
	synth := &fakeSynth{block: make(chan struct{})}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	const n = 5
	var completions atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			speaker.Speak(context.Background(), "hello", func() {
				completions.Add(1)
			})
		}()
	}
	wg.Wait()

	// One call holds the slot (blocked in synthesis); the rest completed
	// synchronously as drops.
	if got := completions.Load(); got != n-1 {
		t.Errorf("Expected %d dropped completions, got %d", n-1, got)
	}

	close(synth.block)
	waitForIdle(t, speaker)

	// Every call completes exactly once, but only one wins the slot
	deadline := time.Now().Add(2 * time.Second)
	for completions.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d completions, got %d", n, completions.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if player.playCount() != 1 {
		t.Errorf("Expected exactly 1 playback, got %d", player.playCount())
	}
}

func TestSpeaker_SynthesisFailureStillCompletes(t *testing.T) {
	synth := &fakeSynth{err: errors.New("synthesis down")}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	done := make(chan struct{})
	speaker.Speak(context.Background(), "hello", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Completion callback never fired after synthesis failure")
	}

	waitForIdle(t, speaker)
	if player.playCount() != 0 {
		t.Errorf("Expected no playback after synthesis failure, got %d", player.playCount())
	}
}

func TestSpeaker_Stop(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	speaker.Stop()

	player.mu.Lock()
	stopped := player.stopped
	player.mu.Unlock()
	if !stopped {
		t.Error("Expected Stop to reach the player")
	}
	if speaker.IsBusy() {
		t.Error("Expected busy flag cleared after Stop")
	}
}

func TestSpeaker_NilCompletionCallback(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	speaker := newTestSpeaker(synth, player)

	// Must not panic on any path
	speaker.Speak(context.Background(), "", nil)
	speaker.Speak(context.Background(), "hello", nil)
	waitForIdle(t, speaker)

	if player.playCount() != 1 {
		t.Errorf("Expected 1 playback, got %d", player.playCount())
	}
}
