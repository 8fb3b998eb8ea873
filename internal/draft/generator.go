// Package draft generates structured academic paper drafts with an
// OpenAI-compatible chat model.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
)

const (
	// DefaultMaxTokens is the completion budget used when none is given.
	DefaultMaxTokens = 2000

	// DefaultTemperature is the sampling temperature for drafts.
	DefaultTemperature = 0.7

	// MaxTopicLength bounds the research topic accepted by Generate, in characters.
	MaxTopicLength = 1000

	// DefaultBreakerFailureThreshold is the number of consecutive model
	// failures that stops further calls for the cooldown.
	DefaultBreakerFailureThreshold = 3

	// DefaultBreakerCooldown is how long calls are refused once the breaker opens.
	DefaultBreakerCooldown = 30 * time.Second
)

const systemPrompt = "You are an expert academic writing assistant helping to generate a structured research paper draft."

const userPromptTemplate = `Generate a structured academic draft on the following research topic: %q

Requirements:
- Use a formal academic writing style
- Include an introduction, main body with key arguments, and a conclusion
- Provide a logical flow of ideas
- Use academic language and terminology
- Demonstrate critical thinking and analytical approach

Draft Structure:
1. Title
2. Abstract
3. Introduction
4. Literature Review
5. Methodology
6. Results and Discussion
7. Conclusion
8. Potential Future Research Directions`

var (
	// ErrEmptyCompletion is returned when the model answers with no text.
	ErrEmptyCompletion = errors.New("model returned an empty draft")

	// ErrModelUnavailable is returned while the breaker refuses calls after
	// repeated model failures.
	ErrModelUnavailable = errors.New("draft model temporarily unavailable")
)

// ChatModel is the part of llms.Model the generator needs.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Config holds draft generator settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// BreakerFailureThreshold and BreakerCooldown tune the breaker around
	// model calls. Zero values use the defaults.
	BreakerFailureThreshold uint32
	BreakerCooldown         time.Duration
}

// Generator writes academic drafts for a research topic. It is safe for
// concurrent use.
type Generator struct {
	model       ChatModel
	modelName   string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// New creates a Generator backed by an OpenAI-compatible endpoint.
func New(cfg Config, metrics *observability.Metrics, logger zerolog.Logger) (*Generator, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return NewWithModel(client, cfg, metrics, logger), nil
}

// NewWithModel creates a Generator over an existing chat model.
func NewWithModel(model ChatModel, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Generator {
	g := &Generator{
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		metrics:     metrics,
		logger:      logger.With().Str("component", "draft").Str("model", cfg.Model).Logger(),
	}
	if g.temperature <= 0 {
		g.temperature = DefaultTemperature
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	g.breaker = newBreaker(cfg, g.logger)
	return g
}

func newBreaker(cfg Config, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = DefaultBreakerFailureThreshold
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("draft model circuit state changed")
		},
	})
}

// Generate returns a draft for topic. A non-positive maxTokens uses the
// configured default.
func (g *Generator) Generate(ctx context.Context, topic string, maxTokens int) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", domain.NewValidationError("topic", "must not be empty")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return "", domain.NewValidationError("topic", fmt.Sprintf("must be at most %d characters", MaxTopicLength))
	}
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger := observability.LoggerFromContext(ctx, g.logger)
	start := time.Now()

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(userPromptTemplate, topic)),
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.model.GenerateContent(ctx, messages,
			llms.WithTemperature(g.temperature),
			llms.WithMaxTokens(maxTokens),
		)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.recordFailure("circuit_open", start)
		logger.Warn().Msg("draft model circuit open; request refused")
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if err != nil {
		g.recordFailure(errorType(err), start)
		logger.Error().Err(err).Int("max_tokens", maxTokens).Msg("draft generation failed")
		return "", fmt.Errorf("generate draft: %w", err)
	}

	var text string
	if resp, _ := out.(*llms.ContentResponse); resp != nil && len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Content)
	}
	if text == "" {
		g.recordFailure("empty", start)
		logger.Warn().Msg("model returned an empty draft")
		return "", ErrEmptyCompletion
	}

	if g.metrics != nil {
		g.metrics.RecordDraftRequest(g.modelName, time.Since(start).Seconds())
	}
	logger.Info().
		Int("max_tokens", maxTokens).
		Int("draft_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("draft generated")

	return text, nil
}

func (g *Generator) recordFailure(errType string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordDraftRequestFailed(g.modelName, errType, time.Since(start).Seconds())
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "upstream"
	}
}
