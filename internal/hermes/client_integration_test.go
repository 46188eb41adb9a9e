//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_JobSubmittedRoundTrip(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	var opts []nats.Option
	if token := os.Getenv("NATS_TOKEN"); token != "" {
		opts = append(opts, nats.Token(token))
	}
	listener, err := nats.Connect(natsURL, opts...)
	if err != nil {
		t.Fatalf("listener connect failed: %v", err)
	}
	defer listener.Close()

	received := make(chan JobSubmitted, 1)
	sub, err := listener.Subscribe("fscs.finetune.>", func(msg *nats.Msg) {
		if msg.Subject != SubjectJobSubmitted {
			return
		}
		var evt JobSubmitted
		if err := json.Unmarshal(msg.Data, &evt); err == nil {
			received <- evt
		}
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()
	if err := listener.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	err = client.Publish(SubjectJobSubmitted, JobSubmitted{
		UserID:    "abcd1234",
		JobID:     "ftjob-integration",
		ModelName: "chatbot-v1",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.JobID != "ftjob-integration" || evt.UserID != "abcd1234" {
			t.Errorf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
