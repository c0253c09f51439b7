package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/voxloop/voxloop/internal/audio"
	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/observability"
	"github.com/voxloop/voxloop/internal/resilience"
)

// DeepgramClient implements Transcriber using Deepgram's pre-recorded REST
// API. Each finalized segment is submitted as one batch request; there is no
// streaming session to manage.
type DeepgramClient struct {
	config *config.Config
	client *prerecorded.Client

	retryConfig    *resilience.RetryConfig
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramClient creates a Deepgram batch transcription client
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	rest := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	return &DeepgramClient{
		config: cfg,
		client: prerecorded.New(rest),
		retryConfig: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		circuitBreaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Transcribe submits the segment's PCM to Deepgram and returns the transcript
// of the best alternative.
func (d *DeepgramClient) Transcribe(ctx context.Context, segment *audio.SpeechSegment) (string, error) {
	if segment == nil || len(segment.PCM) == 0 {
		return "", nil
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:      d.config.DeepgramModel,
		Language:   d.config.DeepgramLanguage,
		Punctuate:  true,
		Encoding:   "linear16",
		SampleRate: segment.SampleRate,
		Channels:   1,
	}

	var text string
	err := d.circuitBreaker.Call(func() error {
		return resilience.Retry(func() error {
			res, callErr := d.client.FromStream(ctx, bytes.NewReader(segment.PCM), options)
			if callErr != nil {
				return fmt.Errorf("deepgram request failed: %w", callErr)
			}

			text = ""
			if res != nil && len(res.Results.Channels) > 0 &&
				len(res.Results.Channels[0].Alternatives) > 0 {
				text = res.Results.Channels[0].Alternatives[0].Transcript
			}
			return nil
		}, d.retryConfig, resilience.IsRetryableNetworkError)
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		return "", fmt.Errorf("deepgram transcription failed: %w", err)
	}

	return text, nil
}

// Close releases client resources
func (d *DeepgramClient) Close() error {
	return nil
}
