package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/neooriginal/FSCS/internal/openai"
)

type Decision int

const (
	Approve Decision = iota
	Rewrite
	Suppress
)

func (d Decision) String() string {
	switch d {
	case Rewrite:
		return "rewrite"
	case Suppress:
		return "suppress"
	default:
		return "approve"
	}
}

// Verdict is the outcome of a second-opinion review of a candidate reply.
// Text is set for Rewrite, Reason for Suppress.
type Verdict struct {
	Decision Decision
	Text     string
	Reason   string
}

// Critic reviews a candidate reply in the context of the conversation.
type Critic interface {
	Review(ctx context.Context, in Input, candidate string) (Verdict, error)
}

// Completer is the provider surface the model critic needs.
type Completer interface {
	ChatCompletion(ctx context.Context, apiKey string, req openai.ChatRequest) (string, error)
}

// ModelCritic asks a second model to approve, rewrite or suppress a reply.
type ModelCritic struct {
	client Completer
	model  string
}

func NewModelCritic(client Completer, model string) *ModelCritic {
	return &ModelCritic{client: client, model: model}
}

func (c *ModelCritic) Review(ctx context.Context, in Input, candidate string) (Verdict, error) {
	msgs := make([]openai.Message, 0, len(in.History)+2)
	msgs = append(msgs, in.History...)
	msgs = append(msgs,
		openai.Message{Role: "system", Content: criticPrompt(in.UserMessage)},
		openai.Message{Role: "user", Content: candidate},
	)

	out, err := c.client.ChatCompletion(ctx, in.Credential, openai.ChatRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("critic review: %w", err)
	}
	return ParseVerdict(out), nil
}

// ParseVerdict reads "[VALID]", "[EMPTY, reason]" or a rewritten reply.
func ParseVerdict(s string) Verdict {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	switch {
	case s == "" || upper == "[VALID]":
		return Verdict{Decision: Approve}
	case strings.HasPrefix(upper, "[EMPTY"):
		reason := strings.TrimPrefix(s[len("[EMPTY"):], ",")
		if i := strings.LastIndex(reason, "]"); i >= 0 {
			reason = reason[:i]
		}
		return Verdict{Decision: Suppress, Reason: strings.TrimSpace(reason)}
	default:
		return Verdict{Decision: Rewrite, Text: s}
	}
}
