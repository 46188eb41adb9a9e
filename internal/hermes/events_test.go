package hermes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSubmitted_WireShape(t *testing.T) {
	evt := JobSubmitted{
		UserID:    "abcd1234",
		JobID:     "ftjob-1",
		ModelName: "chatbot-v3",
		BaseModel: "gpt-4o-mini-2024-07-18",
		Examples:  120,
		Files:     2,
		Epochs:    6,
		Cost:      4,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abcd1234", got["user_id"])
	assert.Equal(t, "ftjob-1", got["job_id"])
	assert.Equal(t, float64(6), got["n_epochs"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
}

func TestJobCompleted_OmitsEmptyModel(t *testing.T) {
	data, err := json.Marshal(JobCompleted{JobID: "ftjob-1", Status: "failed"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "fine_tuned_model")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(SubjectChatFiltered, ChatFiltered{Suppressed: true}))
}
