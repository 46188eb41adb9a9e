// Package chat answers user messages with a fine-tuned or base model and
// runs every reply through the response validator.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/neooriginal/FSCS/internal/apperr"
	"github.com/neooriginal/FSCS/internal/hermes"
	"github.com/neooriginal/FSCS/internal/metrics"
	"github.com/neooriginal/FSCS/internal/openai"
	"github.com/neooriginal/FSCS/internal/retry"
	"github.com/neooriginal/FSCS/internal/session"
	"github.com/neooriginal/FSCS/internal/validator"
)

const (
	DefaultModel     = "gpt-4o"
	MaxMessageLength = 10000
	maxTokens        = 500
)

var (
	rolePrefixRe = regexp.MustCompile(`(?i)^(system|assistant):`)
	bracketRe    = regexp.MustCompile(`\[.*?\]`)
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
)

// Sanitize strips role prefixes, bracketed segments and fenced code from a
// user message.
func Sanitize(s string) string {
	s = rolePrefixRe.ReplaceAllString(s, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = codeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type Provider interface {
	ChatCompletion(ctx context.Context, apiKey string, req openai.ChatRequest) (string, error)
}

// ModelSource resolves the newest fine-tuned model for a credential.
type ModelSource interface {
	LatestModel(ctx context.Context, credential string) (string, bool, error)
}

type Request struct {
	Credential string
	Message    string
	Model      string
	IsGroup    bool
}

type Response struct {
	Reply string
	Model string
	Note  string
}

type Service struct {
	provider     Provider
	models       ModelSource
	sessions     session.SessionStore
	defaultModel string
	rules        *validator.Pipeline
	review       *validator.Pipeline
	retry        retry.Policy
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewService builds the chat service. An empty criticModel disables the
// review stage on Ask.
func NewService(provider Provider, models ModelSource, sessions session.SessionStore, defaultModel, criticModel string, m *metrics.Metrics, events hermes.Publisher, logger *slog.Logger) *Service {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	var critic validator.Critic
	if criticModel != "" {
		critic = validator.NewModelCritic(provider, criticModel)
	}
	return &Service{
		provider:     provider,
		models:       models,
		sessions:     sessions,
		defaultModel: defaultModel,
		rules:        validator.NewPipeline(validator.DefaultRules(), nil, m, events, logger),
		review:       validator.NewPipeline(nil, critic, m, events, logger),
		retry:        retry.DefaultPolicy,
		metrics:      m,
		logger:       logger,
	}
}

// ResolveModel returns the requested model, else the newest fine-tuned
// model, else the default.
func (s *Service) ResolveModel(ctx context.Context, credential, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.models != nil {
		latest, ok, err := s.models.LatestModel(ctx, credential)
		if err != nil {
			return "", err
		}
		if ok {
			return latest, nil
		}
	}
	return s.defaultModel, nil
}

// Reply answers a chat message with the group or one-to-one prompt and the
// full rule pipeline.
func (s *Service) Reply(ctx context.Context, req Request) (*Response, error) {
	message := Sanitize(req.Message)
	if message == "" {
		return nil, apperr.WithCode(apperr.Validation, "invalid_input", "The input contains invalid or potentially harmful content.")
	}

	model, err := s.ResolveModel(ctx, req.Credential, req.Model)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, req, message, model, validator.SystemPrompt(req.IsGroup), s.rules)
}

// Ask answers with the clone prompt and the review stage only.
func (s *Service) Ask(ctx context.Context, credential, message, model string) (*Response, error) {
	clean := Sanitize(message)
	if clean == "" {
		return nil, apperr.WithCode(apperr.Validation, "invalid_input", "The input contains invalid or potentially harmful content.")
	}
	model, err := s.ResolveModel(ctx, credential, model)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, Request{Credential: credential, Message: message, Model: model}, clean, model, validator.ClonePrompt, s.review)
}

func (s *Service) respond(ctx context.Context, req Request, message, model, systemPrompt string, p *validator.Pipeline) (*Response, error) {
	userKey := session.UserKey(req.Credential)
	userID := session.UserID(req.Credential)

	history := toProvider(s.sessions.History(userKey, model))
	gen := s.generator(req.Credential, model, message, history)

	reply, err := gen.Generate(ctx, systemPrompt, validator.DefaultSampling)
	if err != nil {
		return nil, err
	}

	res, err := p.Validate(ctx, validator.Input{
		Credential:  req.Credential,
		UserID:      userID,
		Model:       model,
		UserMessage: message,
		Reply:       reply,
		IsGroup:     req.IsGroup,
		History:     history,
	}, gen)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(res.Reply) != "" {
		s.sessions.Append(userKey, model,
			session.Message{Role: "user", Content: message},
			session.Message{Role: "assistant", Content: res.Reply},
		)
	}

	s.logger.Debug("chat reply", "user_id", userID, "model", model, "regenerations", res.Regenerations, "actions", res.Actions)
	return &Response{Reply: res.Reply, Model: model, Note: res.Note}, nil
}

// generator binds one conversation turn so the validator can ask for
// replacement replies.
func (s *Service) generator(credential, model, message string, history []openai.Message) validator.Generator {
	return validator.GeneratorFunc(func(ctx context.Context, systemPrompt string, sm validator.Sampling) (string, error) {
		msgs := make([]openai.Message, 0, len(history)+2)
		system := openai.Message{Role: "system", Content: systemPrompt}
		if sm.SystemFirst {
			msgs = append(msgs, system)
			msgs = append(msgs, history...)
		} else {
			msgs = append(msgs, history...)
			msgs = append(msgs, system)
		}
		msgs = append(msgs, openai.Message{Role: "user", Content: message})

		out, err := retry.Do(ctx, s.retry, s.logger, func(ctx context.Context) (string, error) {
			return s.provider.ChatCompletion(ctx, credential, openai.ChatRequest{
				Model:       model,
				Messages:    msgs,
				Temperature: sm.Temperature,
				TopP:        sm.TopP,
				MaxTokens:   maxTokens,
			})
		})
		s.metrics.ProviderCall("chat", err)
		if err != nil {
			return "", fmt.Errorf("generate reply: %w", err)
		}
		return out, nil
	})
}

func toProvider(msgs []session.Message) []openai.Message {
	out := make([]openai.Message, len(msgs))
	for i, m := range msgs {
		out[i] = openai.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
