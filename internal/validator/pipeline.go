package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neooriginal/FSCS/internal/hermes"
	"github.com/neooriginal/FSCS/internal/metrics"
	"github.com/neooriginal/FSCS/internal/openai"
)

// Input describes one generated reply. Credential is only forwarded to the
// provider; UserID is what gets logged.
type Input struct {
	Credential  string
	UserID      string
	Model       string
	UserMessage string
	Reply       string
	IsGroup     bool
	History     []openai.Message
}

// Sampling controls a regeneration call. SystemFirst places the system
// prompt ahead of the history instead of after it.
type Sampling struct {
	Temperature float64
	TopP        float64
	SystemFirst bool
}

var (
	DefaultSampling    = Sampling{Temperature: 0.55, TopP: 0.9}
	HumanVoiceSampling = Sampling{Temperature: 0.75, TopP: 0.95, SystemFirst: true}
)

// Generator produces a fresh reply to the same user message.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, s Sampling) (string, error)
}

type GeneratorFunc func(ctx context.Context, systemPrompt string, s Sampling) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt string, s Sampling) (string, error) {
	return f(ctx, systemPrompt, s)
}

type Result struct {
	Reply         string
	Note          string
	Regenerations int
	Actions       []string
}

// Pipeline runs the optional critic, then the rule stages when rules is set.
type Pipeline struct {
	rules   *RuleSet
	critic  Critic
	metrics *metrics.Metrics
	events  hermes.Publisher
	logger  *slog.Logger
}

func NewPipeline(rules *RuleSet, critic Critic, m *metrics.Metrics, events hermes.Publisher, logger *slog.Logger) *Pipeline {
	if events == nil {
		events = hermes.Noop{}
	}
	return &Pipeline{
		rules:   rules,
		critic:  critic,
		metrics: m,
		events:  events,
		logger:  logger,
	}
}

func (p *Pipeline) Validate(ctx context.Context, in Input, gen Generator) (Result, error) {
	res := Result{Reply: in.Reply}
	defer p.publish(in, &res)

	if p.critic != nil {
		v, err := p.critic.Review(ctx, in, res.Reply)
		switch {
		case err != nil:
			p.logger.Warn("critic unavailable, keeping candidate", "user_id", in.UserID, "error", err)
		case v.Decision == Rewrite:
			res.Reply = v.Text
			p.record(&res, KindCritic, ActionRewrite)
		case v.Decision == Suppress:
			res.Reply = ""
			res.Note = NoteWithheld
			if v.Reason != "" {
				res.Note += ": " + v.Reason
			}
			p.record(&res, KindCritic, ActionSuppress)
			return res, nil
		}
	}

	if p.rules == nil {
		return res, nil
	}

	_, casual := FirstMatch(p.rules.Casual, in.UserMessage)
	quiet := casual || in.IsGroup

	if rule, ok := FirstMatch(p.rules.Fabrication, res.Reply); ok {
		p.logger.Info("possible fabrication in reply", "user_id", in.UserID, "rule", rule.Name, "quiet", quiet)
		if quiet {
			res.Reply = ""
			res.Note = NoteFiltered
			p.record(&res, KindFabrication, ActionSuppress)
			return res, nil
		}

		reply, err := gen.Generate(ctx, ZeroTolerancePrompt, DefaultSampling)
		if err != nil {
			return res, fmt.Errorf("regenerate after fabrication: %w", err)
		}
		res.Regenerations++
		p.record(&res, KindFabrication, ActionRegenerate)

		if _, still := FirstMatch(p.rules.Fabrication, reply); still {
			reply = SafeFallback
			p.record(&res, KindFabrication, ActionFallback)
		}
		res.Reply = reply
	}

	if rule, ok := FirstMatch(p.rules.Mannerism, res.Reply); ok {
		p.logger.Info("ai mannerism in reply", "user_id", in.UserID, "phrase", rule.Name)
		reply, err := gen.Generate(ctx, HumanVoicePrompt, HumanVoiceSampling)
		if err != nil {
			return res, fmt.Errorf("regenerate after mannerism: %w", err)
		}
		res.Regenerations++
		p.record(&res, KindMannerism, ActionRegenerate)
		res.Reply = reply

		if _, fabricated := FirstMatch(p.rules.Fabrication, reply); fabricated && quiet {
			res.Reply = ""
			res.Note = NoteFilteredAfterRegeneration
			p.record(&res, KindFabrication, ActionSuppress)
		}
	}

	return res, nil
}

func (p *Pipeline) record(res *Result, kind Kind, action Action) {
	res.Actions = append(res.Actions, string(kind)+":"+string(action))
	p.metrics.ValidatorAction(string(kind), string(action))
}

func (p *Pipeline) publish(in Input, res *Result) {
	if len(res.Actions) == 0 {
		return
	}
	evt := hermes.ChatFiltered{
		UserID:        in.UserID,
		Model:         in.Model,
		Actions:       res.Actions,
		Regenerations: res.Regenerations,
		Suppressed:    res.Reply == "",
		Timestamp:     time.Now().UTC(),
	}
	if err := p.events.Publish(hermes.SubjectChatFiltered, evt); err != nil {
		p.logger.Warn("failed to publish chat.filtered", "user_id", in.UserID, "error", err)
	}
}
