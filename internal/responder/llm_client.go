package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	"github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/observability"
	"github.com/voxloop/voxloop/internal/resilience"
	"github.com/voxloop/voxloop/internal/transcript"
)

// systemPrompt frames the model as a voice interviewer. Replies are kept
// short because they are spoken aloud.
const systemPrompt = "You are a friendly technical interviewer conducting a spoken " +
	"interview over voice. Ask one question at a time, follow up on what the " +
	"candidate actually said, and keep every reply to two or three sentences " +
	"so it sounds natural when read aloud. Do not use markdown or lists."

// LLMClient implements Responder on top of any-llm-go, which provides a
// uniform completion interface over Gemini, OpenAI, Anthropic, and Ollama
// backends.
type LLMClient struct {
	backend     anyllm.Provider
	model       string
	maxTokens   int
	temperature float64

	circuitBreaker *resilience.CircuitBreaker
}

// NewLLMClient creates a response generator for the configured provider.
// When no API key is configured the provider falls back to its own
// environment variable (GEMINI_API_KEY, OPENAI_API_KEY, ...).
func NewLLMClient(cfg *config.Config) (*LLMClient, error) {
	var opts []anyllm.Option
	if cfg.LLMAPIKey != "" {
		opts = append(opts, anyllm.WithAPIKey(cfg.LLMAPIKey))
	}

	var (
		backend anyllm.Provider
		err     error
	)
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		backend, err = gemini.New(opts...)
	case "openai":
		backend, err = openai.New(opts...)
	case "anthropic":
		backend, err = anthropic.New(opts...)
	case "ollama":
		backend, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q; supported: gemini, openai, anthropic, ollama", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.LLMProvider, err)
	}

	return &LLMClient{
		backend:     backend,
		model:       cfg.LLMModel,
		maxTokens:   cfg.LLMMaxTokens,
		temperature: cfg.LLMTemperature,
		circuitBreaker: resilience.NewCircuitBreaker(
			"responder",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}, nil
}

// OpeningLine asks the model for a greeting that starts the interview
func (c *LLMClient) OpeningLine(ctx context.Context) (string, error) {
	messages := []anyllm.Message{
		{Role: anyllm.RoleSystem, Content: systemPrompt},
		{Role: anyllm.RoleUser, Content: "This is the start of the interview. Greet the " +
			"candidate warmly and ask them to introduce themselves - their name, background, " +
			"experience level, and areas of interest."},
	}
	return c.complete(ctx, messages)
}

// Respond generates a reply from the bounded history suffix and the newest
// user input. The input is expected to already be the final turn of history;
// it is passed separately so a responder can weight it if it wants to.
func (c *LLMClient) Respond(ctx context.Context, history []transcript.Turn, input string) (string, error) {
	messages := make([]anyllm.Message, 0, len(history)+2)
	messages = append(messages, anyllm.Message{Role: anyllm.RoleSystem, Content: systemPrompt})

	for _, turn := range history {
		role := anyllm.RoleUser
		if turn.Speaker == transcript.SpeakerAgent {
			role = anyllm.RoleAssistant
		}
		messages = append(messages, anyllm.Message{Role: role, Content: turn.Text})
	}

	// History may or may not already end with the newest input, depending on
	// when the caller appended it. Only add it if it is missing.
	if len(history) == 0 || history[len(history)-1].Text != input {
		messages = append(messages, anyllm.Message{Role: anyllm.RoleUser, Content: input})
	}

	return c.complete(ctx, messages)
}

// ClosingLine returns the fixed farewell
func (c *LLMClient) ClosingLine() string {
	return FallbackClosing
}

func (c *LLMClient) complete(ctx context.Context, messages []anyllm.Message) (string, error) {
	params := anyllm.CompletionParams{
		Model:    c.model,
		Messages: messages,
	}
	if c.temperature != 0 {
		t := c.temperature
		params.Temperature = &t
	}
	if c.maxTokens > 0 {
		mt := c.maxTokens
		params.MaxTokens = &mt
	}

	var text string
	err := c.circuitBreaker.Call(func() error {
		resp, callErr := c.backend.Completion(ctx, params)
		if callErr != nil {
			return fmt.Errorf("completion failed: %w", callErr)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty choices in completion response")
		}
		text = strings.TrimSpace(resp.Choices[0].Message.ContentString())
		return nil
	})

	observability.UpdateCircuitBreakerState("responder", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("responder")
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	return text, nil
}
