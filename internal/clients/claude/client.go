package claude

import (
	"context"
	"errors"
	"fmt"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/maxaizer/jobscout/internal/clients"
	"golang.org/x/time/rate"
	"strings"
)

const DefaultModel = "claude-3-5-haiku-latest"

const maxTokens = 1024

const systemPrompt = "You are a career assistant that evaluates job postings against a candidate profile. " +
	"Answer with a single JSON object and nothing else."

type Client struct {
	client            anthropic.Client
	model             string
	minuteRateLimiter *rate.Limiter
}

func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	// retries are done by the scoring dispatcher
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) GenerateResponse(ctx context.Context, text string) (string, error) {
	if c.minuteRateLimiter != nil {
		if err := c.minuteRateLimiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(text))},
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
	})
	if err != nil {
		if isRejected(err) {
			return "", fmt.Errorf("%w: %v", clients.ErrRejected, err)
		}
		return "", fmt.Errorf("claude api call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", clients.ErrEmptyResponse
	}
	return response.String(), nil
}

// isRejected reports client errors that will not succeed on retry. 429 is retryable.
func isRejected(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429
}
