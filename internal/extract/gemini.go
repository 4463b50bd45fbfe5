package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// generateFunc performs one completion attempt and returns the
// response text.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content) (string, error)

// GeminiCompleter calls the Gemini API. Calls run under a bounded
// timeout with a fixed number of retries and exponential backoff; on
// exhaustion the caller gets domain.ErrServiceUnavailable, never a hang.
type GeminiCompleter struct {
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration // base delay, doubled per attempt
	generate   generateFunc
}

// NewGeminiCompleter creates a completer for the given model. The API
// key comes from the environment (GEMINI_API_KEY) via the genai client.
func NewGeminiCompleter(ctx context.Context, model string, timeout time.Duration, maxRetries int) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiCompleter{
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    time.Second,
		generate: func(ctx context.Context, model string, contents []*genai.Content) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

// Complete sends the prompt (and optional inline image) to Gemini and
// returns the response parsed as a generic JSON object. A malformed
// response is domain.ErrExtractionFailed; records are never guessed
// from partial output.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string, img *Image) (map[string]interface{}, error) {
	log := logger.FromContext(ctx)

	parts := []*genai.Part{{Text: prompt}}
	if img != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	rawText, err := g.generateWithRetry(ctx, log, contents)
	if err != nil {
		return nil, err
	}

	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		log.Warn().Err(err).Str("raw", rawText).Msg("Model returned non-JSON output")
		return nil, fmt.Errorf("%w: unmarshal model output: %v", domain.ErrExtractionFailed, err)
	}
	return parsed, nil
}

// Reply returns a free-text completion under the same timeout and
// retry budget as Complete.
func (g *GeminiCompleter) Reply(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContext(ctx)
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	return g.generateWithRetry(ctx, log, contents)
}

func (g *GeminiCompleter) generateWithRetry(ctx context.Context, log zerolog.Logger, contents []*genai.Content) (string, error) {
	var lastErr error
	delay := g.backoff

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Int("attempt", attempt).Msg("Retrying completion call")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, ctx.Err())
			}
			delay *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		text, err := g.generate(callCtx, g.model, contents)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		if text == "" {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, lastErr)
}
