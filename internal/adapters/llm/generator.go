// Package llm implements the generator port against an OpenAI-compatible API.
package llm

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/tome/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Generator = (*Client)(nil)

// Client is a ports.Generator backed by a chat-completion API. Every call is
// bounded by the configured timeout; a deadline hit surfaces as
// domain.ErrGeneratorTimeout so callers can apply the bounded discovery retry.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
}

// New creates a Client for the given model and per-call timeout. The API key
// is read from OPENAI_API_KEY and an optional endpoint override from
// OPENAI_BASE_URL.
func New(model string, timeoutMs int) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   model,
		timeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Invoke runs one generation call and returns the raw response text.
func (c *Client) Invoke(ctx context.Context, spec domain.PromptSpec) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	system, user := renderPrompt(spec)
	request := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}

	resp, err := c.api.Chat.Completions.New(callCtx, request)
	if err != nil {
		return "", c.classify(ctx, err, spec)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", zerr.With(domain.ErrGeneratorFailure, "kind", string(spec.Kind))
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		text = resp.Choices[0].Message.Refusal
	}
	if text == "" {
		return "", zerr.With(domain.ErrGeneratorFailure, "kind", string(spec.Kind))
	}
	return text, nil
}

// classify maps transport errors onto the domain taxonomy. Only timeouts get
// a distinguished sentinel; everything else is an opaque generator failure.
func (c *Client) classify(parent context.Context, err error, spec domain.PromptSpec) error {
	timedOut := errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timedOut = true
	}

	if timedOut {
		return zerr.With(zerr.With(domain.ErrGeneratorTimeout, "kind", string(spec.Kind)), "cause", err.Error())
	}
	return zerr.With(zerr.With(domain.ErrGeneratorFailure, "kind", string(spec.Kind)), "cause", err.Error())
}
