package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice agent
type Config struct {
	// Audio capture configuration
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"` // Microphone sample rate in Hz
	FrameSize  int `envconfig:"FRAME_SIZE" default:"1024"`   // Samples per capture frame

	// Voice activity segmentation configuration
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"0.01"` // RMS energy threshold for speech
	MinUtteranceSec    float64 `envconfig:"MIN_UTTERANCE_SEC" default:"5.0"`     // Segments shorter than this are discarded
	MaxUtteranceSec    float64 `envconfig:"MAX_UTTERANCE_SEC" default:"20.0"`    // Segments are force-emitted at this length
	SilenceDurationSec float64 `envconfig:"SILENCE_DURATION_SEC" default:"5.0"`  // Trailing silence that ends an utterance

	// Conversation configuration
	SegmentQueueSize int `envconfig:"SEGMENT_QUEUE_SIZE" default:"8"` // Buffered speech segments awaiting processing
	ListenTimeoutSec int `envconfig:"LISTEN_TIMEOUT_SEC" default:"30"` // Seconds of no speech before prompting the user
	HistoryTurns     int `envconfig:"HISTORY_TURNS" default:"8"`       // Conversation turns sent to the responder

	// Speech-to-text configuration
	STTBackend       string `envconfig:"STT_BACKEND" default:"whisper"` // whisper or deepgram
	WhisperURL       string `envconfig:"WHISPER_URL" default:"http://localhost:8080"`
	WhisperLanguage  string `envconfig:"WHISPER_LANGUAGE" default:"en"`
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`  // Language code (en, es, fr, etc.)

	// Responder (LLM) configuration
	LLMProvider    string  `envconfig:"LLM_PROVIDER" default:"gemini"` // gemini, openai, anthropic, ollama
	LLMModel       string  `envconfig:"LLM_MODEL" default:"gemini-1.5-flash"`
	LLMAPIKey      string  `envconfig:"LLM_API_KEY" default:""`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"150"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`

	// Cartesia TTS API configuration
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY" required:"true"`
	CartesiaVoiceID string `envconfig:"CARTESIA_VOICE_ID" default:"sonic-english"` // Voice ID for Cartesia
	CartesiaModelID string `envconfig:"CARTESIA_MODEL_ID" default:"sonic"`         // Model ID (sonic, etc.)
	TTSSampleRate   int    `envconfig:"TTS_SAMPLE_RATE" default:"24000"`           // Playback sample rate in Hz

	// Transcript configuration
	TranscriptDir string `envconfig:"TRANSCRIPT_DIR" default:"."` // Directory for saved conversation logs

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`      // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`    // Port for metrics and health endpoints
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.CartesiaAPIKey == "" {
		return fmt.Errorf("CARTESIA_API_KEY is required")
	}

	switch strings.ToLower(cfg.STTBackend) {
	case "whisper":
		// Local whisper-server needs no credentials
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when STT_BACKEND=deepgram")
		}
	default:
		return fmt.Errorf("unsupported STT_BACKEND %q (must be whisper or deepgram)", cfg.STTBackend)
	}

	if cfg.VADEnergyThreshold <= 0 {
		return fmt.Errorf("VAD_ENERGY_THRESHOLD must be positive, got %g", cfg.VADEnergyThreshold)
	}
	if cfg.MaxUtteranceSec <= cfg.MinUtteranceSec {
		return fmt.Errorf("MAX_UTTERANCE_SEC (%g) must exceed MIN_UTTERANCE_SEC (%g)",
			cfg.MaxUtteranceSec, cfg.MinUtteranceSec)
	}

	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
