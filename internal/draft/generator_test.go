package draft

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
)

type fakeModel struct {
	content string
	err     error
	delay   time.Duration

	calls    int
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func newTestGenerator(model ChatModel, metrics *observability.Metrics, cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	return NewWithModel(model, cfg, metrics, zerolog.Nop())
}

func messageText(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{content: "  # Title\n\nAbstract...  "}
	metrics := observability.NewMetrics("test_draft_generate")
	g := newTestGenerator(model, metrics, Config{})

	text, err := g.Generate(context.Background(), "  quantum error correction ", 1500)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nAbstract...", text)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Contains(t, messageText(t, model.messages[0]), "expert academic writing assistant")
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)

	prompt := messageText(t, model.messages[1])
	assert.Contains(t, prompt, `"quantum error correction"`)
	for _, section := range []string{"Title", "Abstract", "Introduction", "Literature Review", "Methodology", "Results and Discussion", "Conclusion", "Future Research Directions"} {
		assert.Contains(t, prompt, section)
	}

	assert.Equal(t, 1500, model.opts.MaxTokens)
	assert.Equal(t, DefaultTemperature, model.opts.Temperature)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DraftRequestsTotal.WithLabelValues("test-model")))
}

func TestGenerator_DefaultMaxTokens(t *testing.T) {
	model := &fakeModel{content: "draft"}

	g := newTestGenerator(model, nil, Config{})
	_, err := g.Generate(context.Background(), "robotics", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, model.opts.MaxTokens)

	g = newTestGenerator(model, nil, Config{MaxTokens: 800, Temperature: 0.2})
	_, err = g.Generate(context.Background(), "robotics", -1)
	require.NoError(t, err)
	assert.Equal(t, 800, model.opts.MaxTokens)
	assert.Equal(t, 0.2, model.opts.Temperature)
}

func TestGenerator_InvalidTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
	}{
		{name: "empty", topic: ""},
		{name: "whitespace", topic: "   \t"},
		{name: "too long", topic: strings.Repeat("t", MaxTopicLength+1)},
		{name: "too many multibyte characters", topic: strings.Repeat("研", MaxTopicLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{content: "draft"}
			g := newTestGenerator(model, nil, Config{})

			_, err := g.Generate(context.Background(), tt.topic, 100)
			require.Error(t, err)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "topic", vErr.Field)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, model.calls)
		})
	}
}

func TestGenerator_TopicLimitCountsCharacters(t *testing.T) {
	model := &fakeModel{content: "draft"}
	g := newTestGenerator(model, nil, Config{})

	topic := strings.Repeat("研", MaxTopicLength)
	require.Greater(t, len(topic), MaxTopicLength)

	text, err := g.Generate(context.Background(), topic, 100)
	require.NoError(t, err)
	assert.Equal(t, "draft", text)
	assert.Equal(t, 1, model.calls)
}

func TestGenerator_EmptyCompletion(t *testing.T) {
	metrics := observability.NewMetrics("test_draft_empty")
	g := newTestGenerator(&fakeModel{content: " \n "}, metrics, Config{})

	_, err := g.Generate(context.Background(), "graph theory", 100)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DraftRequestsFailed.WithLabelValues("test-model", "empty")))
}

func TestGenerator_ModelError(t *testing.T) {
	upstream := errors.New("401 unauthorized")
	metrics := observability.NewMetrics("test_draft_error")
	g := newTestGenerator(&fakeModel{err: upstream}, metrics, Config{})

	_, err := g.Generate(context.Background(), "graph theory", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DraftRequestsFailed.WithLabelValues("test-model", "upstream")))
}

func TestGenerator_Timeout(t *testing.T) {
	metrics := observability.NewMetrics("test_draft_timeout")
	g := newTestGenerator(&fakeModel{content: "late", delay: time.Second}, metrics, Config{Timeout: 20 * time.Millisecond})

	_, err := g.Generate(context.Background(), "graph theory", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DraftRequestsFailed.WithLabelValues("test-model", "timeout")))
}

func TestGenerator_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	metrics := observability.NewMetrics("test_draft_breaker")
	model := &fakeModel{err: errors.New("503 service unavailable")}
	g := newTestGenerator(model, metrics, Config{BreakerFailureThreshold: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), "graph theory", 100)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrModelUnavailable)
	}

	_, err := g.Generate(context.Background(), "graph theory", 100)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 2, model.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DraftRequestsFailed.WithLabelValues("test-model", "circuit_open")))
}

func TestGenerator_CanceledCallsDoNotTripBreaker(t *testing.T) {
	model := &fakeModel{err: context.Canceled}
	g := newTestGenerator(model, nil, Config{BreakerFailureThreshold: 1})

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), "graph theory", 100)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, model.calls)
}

func TestNew(t *testing.T) {
	g, err := New(Config{
		BaseURL: "https://api.groq.com/openai/v1",
		APIKey:  "gsk-test",
		Model:   "llama-3.3-70b-versatile",
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", g.modelName)
	assert.Equal(t, DefaultMaxTokens, g.maxTokens)
}
