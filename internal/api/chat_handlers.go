package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/neooriginal/FSCS/internal/apperr"
	"github.com/neooriginal/FSCS/internal/chat"
)

type modelDescriptor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JobID     string `json:"jobId,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

var baseModels = []modelDescriptor{
	{ID: "gpt-4o", Name: "GPT-4o"},
	{ID: "gpt-4-turbo", Name: "GPT-4 Turbo"},
	{ID: "gpt-4", Name: "GPT-4"},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	cred := credentialFrom(r.Context())
	models, err := withTimeout(r.Context(), s.opts.RequestTimeout, func(ctx context.Context) ([]modelDescriptor, error) {
		tuned, err := s.tuning.ListFineTunedModels(ctx, cred)
		if err != nil {
			return nil, err
		}
		out := make([]modelDescriptor, 0, len(tuned)+len(baseModels))
		for _, m := range tuned {
			out = append(out, modelDescriptor{ID: m.ID, Name: m.ID, JobID: m.JobID, CreatedAt: m.CreatedAt})
		}
		return append(out, baseModels...), nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "models": models})
}

type chatRequest struct {
	Message        json.RawMessage `json:"message"`
	Model          string          `json:"model"`
	IsGroupMessage bool            `json:"isGroupMessage"`
}

// parseMessage enforces the message field contract: present, a string, and
// at most chat.MaxMessageLength characters.
func parseMessage(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", apperr.WithCode(apperr.Validation, "missing_message", "Message is required")
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", apperr.WithCode(apperr.Validation, "invalid_message_format", "Message must be a string")
	}
	if msg == "" {
		return "", apperr.WithCode(apperr.Validation, "missing_message", "Message is required")
	}
	if utf8.RuneCountInString(msg) > chat.MaxMessageLength {
		return "", apperr.WithCode(apperr.Validation, "message_too_long",
			fmt.Sprintf("Message exceeds maximum length (%d characters)", chat.MaxMessageLength))
	}
	return msg, nil
}

func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := parseMessage(body.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req := chat.Request{
		Credential: credentialFrom(r.Context()),
		Message:    msg,
		Model:      body.Model,
		IsGroup:    body.IsGroupMessage,
	}
	resp, err := withTimeout(r.Context(), s.opts.RequestTimeout, func(ctx context.Context) (*chat.Response, error) {
		return s.chat.Reply(ctx, req)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := map[string]any{
		"status":   "success",
		"response": resp.Reply,
		"model":    resp.Model,
	}
	if resp.Note != "" {
		out["note"] = resp.Note
	}
	writeJSON(w, http.StatusOK, out)
}
