package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// JobSummary is the operator-facing view of a fine-tuning job. It carries the
// short user id only.
type JobSummary struct {
	UserID         string
	JobID          string
	ModelName      string
	BaseModel      string
	Status         string
	FineTunedModel string
	Examples       int
	Files          int
	Epochs         int
	Cost           int
}

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostJobSubmitted announces a new fine-tuning job. Returns the message
// timestamp so completion can be posted in the same thread.
func (p *Poster) PostJobSubmitted(ctx context.Context, job JobSummary) (string, error) {
	text := formatSubmittedMessage(job)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Status updates follow in this thread.",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted job submission to slack", "ts", ts, "job_id", job.JobID, "user_id", job.UserID)
	return ts, nil
}

// PostJobCompleted reports a terminal job status, threaded under threadTS
// when one is known.
func (p *Poster) PostJobCompleted(ctx context.Context, threadTS string, job JobSummary) error {
	if threadTS == "" {
		_, err := p.post(ctx, map[string]any{
			"channel": p.channel,
			"text":    formatCompletedMessage(job),
		})
		return err
	}
	return p.PostThread(ctx, threadTS, formatCompletedMessage(job))
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatSubmittedMessage(job JobSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Fine-tuning job submitted:* `%s`\n", job.JobID)
	fmt.Fprintf(&sb, "*User:* %s\n", job.UserID)
	fmt.Fprintf(&sb, "*Model:* %s (base %s)\n", job.ModelName, job.BaseModel)
	fmt.Fprintf(&sb, "*Data:* %d examples from %d file(s)\n", job.Examples, job.Files)
	fmt.Fprintf(&sb, "*Epochs:* %d | *Estimated cost:* $%d", job.Epochs, job.Cost)

	return sb.String()
}

func formatCompletedMessage(job JobSummary) string {
	if job.Status == "succeeded" {
		return fmt.Sprintf(":white_check_mark: Job `%s` succeeded. Model: `%s`", job.JobID, job.FineTunedModel)
	}
	return fmt.Sprintf(":x: Job `%s` finished with status *%s*", job.JobID, job.Status)
}
