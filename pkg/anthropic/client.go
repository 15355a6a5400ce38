// Package anthropic sends single-turn prompts to Claude through the
// Anthropic SDK.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client completes one prompt.
type Client interface {
	Complete(ctx context.Context, p Prompt) (*Reply, error)
}

// Prompt is a system instruction plus one user turn.
type Prompt struct {
	Model       string
	MaxTokens   int64
	System      string
	User        string
	Temperature float64
}

// Reply holds the model's text and token counts.
type Reply struct {
	Text         string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	return &sdkClient{
		client: sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
	}
}

func (c *sdkClient) Complete(ctx context.Context, p Prompt) (*Reply, error) {
	msg, err := c.client.Messages.New(ctx, newParams(p))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}

	reply := newReply(msg)
	zap.L().Debug("anthropic: usage",
		zap.String("model", p.Model),
		zap.Int64("input_tokens", reply.InputTokens),
		zap.Int64("output_tokens", reply.OutputTokens),
	)
	return reply, nil
}

func newParams(p Prompt) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(p.Model),
		MaxTokens:   p.MaxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
		Temperature: sdk.Float(p.Temperature),
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	return params
}

// newReply keeps only the text blocks, one per line.
func newReply(msg *sdk.Message) *Reply {
	var parts []string
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return &Reply{
		Text:         strings.TrimSpace(strings.Join(parts, "\n")),
		StopReason:   string(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
}
