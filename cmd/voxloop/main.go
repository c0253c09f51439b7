package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxloop/voxloop/internal/audio"
	"github.com/voxloop/voxloop/internal/capture"
	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/observability"
	"github.com/voxloop/voxloop/internal/responder"
	"github.com/voxloop/voxloop/internal/session"
	"github.com/voxloop/voxloop/internal/stt"
	"github.com/voxloop/voxloop/internal/tts"
)

// consoleSink prints the conversation to stdout; structured logs go to stderr
type consoleSink struct{}

func (consoleSink) AgentSaid(text string) { fmt.Printf("Agent: %s\n", text) }
func (consoleSink) UserSaid(text string)  { fmt.Printf("You: %s\n", text) }
func (consoleSink) Notice(text string)    { fmt.Printf("[%s]\n", text) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("stt_backend", cfg.STTBackend).
		Str("llm_provider", cfg.LLMProvider).
		Int("sample_rate", cfg.SampleRate).
		Msg("Starting voxloop voice agent")

	if err := capture.Init(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize audio subsystem")
	}
	defer capture.Terminate()

	// Speech-to-text backend
	var transcriber stt.Transcriber
	switch strings.ToLower(cfg.STTBackend) {
	case "deepgram":
		transcriber = stt.NewDeepgramClient(cfg)
	default:
		transcriber = stt.NewWhisperClient(cfg)
	}
	defer transcriber.Close()

	// Responder
	llm, err := responder.NewLLMClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LLM client")
	}

	// Speech output
	synth := tts.NewCartesiaClient(cfg)
	defer synth.Close()
	player := capture.NewPlayer(cfg.FrameSize)

	// Metrics and health endpoints
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsServer = startMetricsServer(cfg, transcriber)
		defer shutdownMetricsServer(metricsServer)
	}

	segmenter := audio.NewSegmenter(&audio.SegmenterConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		MinUtterance:    secondsToDuration(cfg.MinUtteranceSec),
		MaxUtterance:    secondsToDuration(cfg.MaxUtteranceSec),
		SilenceDuration: secondsToDuration(cfg.SilenceDurationSec),
		SampleRate:      cfg.SampleRate,
	})

	sessionID := observability.NewSessionID()
	metrics := observability.NewSessionMetrics(sessionID)
	speaker := tts.NewSpeaker(synth, player, metrics, logger)
	sess := session.NewSession(cfg, sessionID, segmenter, transcriber, llm, speaker, consoleSink{}, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C aborts the session; the transcript is still saved.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	mic, err := capture.OpenMicrophone(cfg.SampleRate, cfg.FrameSize, sess.HandleFrame)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open microphone")
	}
	if err := mic.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start microphone capture")
	}
	defer mic.Close()

	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Session ended with error")
		os.Exit(1)
	}

	logger.Info().Msg("voxloop shut down cleanly")
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

func startMetricsServer(cfg *config.Config, transcriber stt.Transcriber) *http.Server {
	logger := observability.GetLogger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(
		observability.Check{
			Name: "stt",
			Fn: func(ctx context.Context) (bool, error) {
				// A transcriber is ready once constructed; backends are
				// reached lazily on the first segment.
				return transcriber != nil, nil
			},
		},
	))

	server := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return server
}

func shutdownMetricsServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
