// Package llm wraps the Anthropic messages API behind the small completion
// surface the planning core needs.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Completer is the single-call completion contract consumed by the plan
// generator and the feasibility enrichment step.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int64
}

type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

type Client struct {
	api            anthropic.Client
	model          string
	maxAttempts    int
	initialBackoff time.Duration
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		api:            anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		maxAttempts:    3,
		initialBackoff: time.Second,
	}
}

// Complete sends one prompt and returns the concatenated text blocks of the
// response. Transient API errors are retried with exponential backoff; the
// last error is returned once attempts are exhausted.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	var lastErr error
	backoff := c.initialBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		response, err := c.api.Messages.New(ctx, params)
		if err == nil {
			var text string
			for _, block := range response.Content {
				if block.Type == "text" {
					text += block.Text
				}
			}
			return &Completion{
				Text:             text,
				PromptTokens:     int(response.Usage.InputTokens),
				CompletionTokens: int(response.Usage.OutputTokens),
			}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		slog.Warn("anthropic API call failed", "attempt", attempt, "error", err)
		if attempt < c.maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("anthropic API failed after %d attempts: %w", c.maxAttempts, lastErr)
}
