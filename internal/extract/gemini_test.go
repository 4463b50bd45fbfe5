package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func newTestCompleter(gen generateFunc) *GeminiCompleter {
	return &GeminiCompleter{
		model:      "test-model",
		timeout:    time.Second,
		maxRetries: 2,
		backoff:    time.Millisecond,
		generate:   gen,
	}
}

func TestGenerateWithRetry_ExhaustionIsServiceUnavailable(t *testing.T) {
	calls := 0
	g := newTestCompleter(func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
		calls++
		return "", errors.New("rate limited")
	})

	_, err := g.Complete(context.Background(), "prompt", nil)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 3, calls, "one initial attempt plus maxRetries")
}

func TestGenerateWithRetry_EmptyResponseRetries(t *testing.T) {
	calls := 0
	g := newTestCompleter(func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
		calls++
		if calls == 1 {
			return "", nil
		}
		return `{"intent": "chat", "reply": "hello"}`, nil
	})

	parsed, err := g.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "chat", parsed["intent"])
}

func TestGenerateWithRetry_CancelledDuringBackoff(t *testing.T) {
	calls := 0
	g := newTestCompleter(func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
		calls++
		return "", errors.New("transient")
	})
	g.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Complete(ctx, "prompt", nil)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 1, calls, "no further attempts once the caller has gone")
}

func TestComplete_FencedJSONIsAccepted(t *testing.T) {
	g := newTestCompleter(func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
		return "```json\n{\"intent\": \"record\", \"transactions\": []}\n```", nil
	})

	parsed, err := g.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "record", parsed["intent"])
}

func TestComplete_NonJSONIsExtractionFailed(t *testing.T) {
	g := newTestCompleter(func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
		return "sorry, I cannot help with that", nil
	})

	_, err := g.Complete(context.Background(), "prompt", nil)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
