package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/config"
	"github.com/sells-group/diabetes-risk/pkg/anthropic"
)

// Narrator rewrites a plan as a short personal message.
type Narrator interface {
	Narrate(ctx context.Context, plan Plan) (string, error)
}

// Static returns the plan's plain text unchanged.
type Static struct{}

func (Static) Narrate(_ context.Context, plan Plan) (string, error) {
	return plan.Text(), nil
}

const narratorSystem = `You are a supportive health coach. Rewrite the recommendations you are given as one or two short, friendly paragraphs addressed to the reader.
Do not add medical claims, numbers or advice that are not in the input. Do not diagnose. Do not use markdown.`

// ClaudeNarrator narrates plans with an Anthropic model.
type ClaudeNarrator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeNarrator creates a narrator. Zero maxTokens means 400.
func NewClaudeNarrator(client anthropic.Client, model string, maxTokens int64) *ClaudeNarrator {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	return &ClaudeNarrator{client: client, model: model, maxTokens: maxTokens}
}

// NewNarrator builds the narrator selected by cfg: Claude when narration is
// enabled, Static otherwise.
func NewNarrator(cfg config.AdviceConfig) Narrator {
	if !cfg.Narrate || cfg.AnthropicKey == "" {
		return Static{}
	}
	return NewClaudeNarrator(anthropic.NewClient(cfg.AnthropicKey), cfg.Model, cfg.MaxTokens)
}

func (n *ClaudeNarrator) Narrate(ctx context.Context, plan Plan) (string, error) {
	reply, err := n.client.Complete(ctx, anthropic.Prompt{
		Model:       n.model,
		MaxTokens:   n.maxTokens,
		System:      narratorSystem,
		User:        prompt(plan),
		Temperature: 0.3,
	})
	if err != nil {
		return "", eris.Wrap(err, "advice: narrate")
	}

	text := reply.Text
	if text == "" {
		return "", eris.New("advice: narrate: empty response")
	}
	return text, nil
}

func prompt(plan Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk tier: %s\n%s\n\nRecommendations:\n", plan.Tier, plan.Summary)
	for _, s := range plan.Lifestyle {
		fmt.Fprintf(&b, "%s: %s\n", s.Title, strings.Join(s.Items, " "))
	}
	fmt.Fprintf(&b, "Diet: %s\n", strings.Join(plan.Dietary, " "))
	return b.String()
}

// Narrate asks n for a narrative and falls back to the plan's text on any
// error. The disclaimer is always appended.
func Narrate(ctx context.Context, n Narrator, plan Plan) string {
	if n == nil {
		return plan.Text()
	}
	text, err := n.Narrate(ctx, plan)
	if err != nil {
		zap.L().Warn("advice: narration failed, using static plan", zap.Error(err))
		return plan.Text()
	}
	if !strings.Contains(text, Disclaimer) {
		text = strings.TrimRight(text, "\n") + "\n\n" + Disclaimer + "\n"
	}
	return text
}
