package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmptyCompletion is reported when the provider answered with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Result is the outcome of one generation call. Err is nil exactly when the
// call succeeded with non-blank text.
type Result struct {
	Text string
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// String returns the generated text, or "" when the call failed.
func (r Result) String() string {
	if r.Err != nil {
		return ""
	}
	return r.Text
}

// Client sends a fixed system instruction plus a per-call prompt to a
// TextGenerator. It never returns provider errors as Go errors; failures
// are carried in Result.
type Client struct {
	generator   TextGenerator
	instruction string
	logger      *slog.Logger
}

// NewClient wraps generator with the system instruction sent on every call.
func NewClient(generator TextGenerator, instruction string) (*Client, error) {
	if generator == nil {
		return nil, errors.New("text generator required")
	}
	return &Client{generator: generator, instruction: instruction, logger: slog.Default()}, nil
}

// Generate performs exactly one round trip to the provider.
func (c *Client) Generate(ctx context.Context, prompt string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("generator panic: %v", r)}
			c.logger.Error("generation panicked", "err", res.Err)
		}
	}()
	text, err := c.generator.GenerateText(ctx, c.instruction, prompt)
	if err != nil {
		c.logger.Error("generation failed", "err", err)
		return Result{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("generation returned empty completion")
		return Result{Err: ErrEmptyCompletion}
	}
	return Result{Text: text}
}
