package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleJob() JobSummary {
	return JobSummary{
		UserID:    "abcd1234",
		JobID:     "ftjob-42",
		ModelName: "chatbot-v2",
		BaseModel: "gpt-4o-mini-2024-07-18",
		Examples:  310,
		Files:     2,
		Epochs:    6,
		Cost:      3,
	}
}

func TestFormatSubmittedMessage(t *testing.T) {
	msg := formatSubmittedMessage(sampleJob())

	checks := []string{
		"ftjob-42",
		"abcd1234",
		"chatbot-v2",
		"gpt-4o-mini-2024-07-18",
		"310 examples from 2 file(s)",
		"*Epochs:* 6",
		"$3",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q", check)
		}
	}
}

func TestFormatCompletedMessage(t *testing.T) {
	job := sampleJob()
	job.Status = "succeeded"
	job.FineTunedModel = "ft:gpt-4o-mini:org:chatbot-v2:abc"
	if msg := formatCompletedMessage(job); !strings.Contains(msg, "ft:gpt-4o-mini:org:chatbot-v2:abc") {
		t.Errorf("expected fine-tuned model in %q", msg)
	}

	job.Status = "failed"
	if msg := formatCompletedMessage(job); !strings.Contains(msg, "*failed*") {
		t.Errorf("expected failed status in %q", msg)
	}
}

func TestPostJobSubmitted_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)

		if payload["channel"] != "C123" {
			t.Errorf("expected channel C123, got %v", payload["channel"])
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1234567890.123456",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	ts, err := p.PostJobSubmitted(context.Background(), sampleJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1234567890.123456" {
		t.Errorf("expected ts 1234567890.123456, got %q", ts)
	}
}

func TestPostJobSubmitted_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "channel_not_found",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if _, err := p.PostJobSubmitted(context.Background(), sampleJob()); err == nil {
		t.Fatal("expected error for slack error response")
	}
}

func TestPostJobCompleted_Threads(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "2"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	job := sampleJob()
	job.Status = "succeeded"
	if err := p.PostJobCompleted(context.Background(), "1.5", job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["thread_ts"] != "1.5" {
		t.Errorf("expected thread_ts 1.5, got %v", got["thread_ts"])
	}

	got = nil
	if err := p.PostJobCompleted(context.Background(), "", job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["thread_ts"]; ok {
		t.Errorf("expected top-level post, got thread_ts %v", got["thread_ts"])
	}
}
