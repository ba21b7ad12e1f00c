// Package llm wraps the Anthropic Messages API behind a small interface:
// production code talks to the real SDK, tests substitute a hand-rolled
// fake, no generated mocks.
package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

// Client is the subset of Anthropic Messages API calls the gateway needs.
type Client interface {
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// SDKClient adapts the real anthropic-sdk-go client to Client.
type SDKClient struct {
	inner anthropic.Client
}

// NewSDKClient constructs a Client backed by the real Anthropic API,
// reading ANTHROPIC_API_KEY from the environment exactly as
// anthropic.NewClient() already does.
func NewSDKClient() *SDKClient {
	return &SDKClient{inner: anthropic.NewClient()}
}

func (c *SDKClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.inner.Messages.New(ctx, params)
}
