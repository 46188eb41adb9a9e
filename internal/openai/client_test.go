package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neooriginal/FSCS/internal/apperr"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c := NewClient("")
	c.SetTestTransport(server.URL)
	return c
}

func TestChatCompletion_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 0.55, req.Temperature)
		assert.Equal(t, 500, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hey"}},
			},
		})
	})

	got, err := c.ChatCompletion(context.Background(), "sk-test", ChatRequest{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "hi"}},
		Temperature: 0.55,
		TopP:        0.9,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, "hey", got)
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := c.ChatCompletion(context.Background(), "sk-test", ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   apperr.Kind
	}{
		{http.StatusUnauthorized, apperr.InvalidCredential},
		{http.StatusTooManyRequests, apperr.RateLimited},
		{http.StatusGatewayTimeout, apperr.UpstreamTimeout},
		{http.StatusBadRequest, apperr.Validation},
		{http.StatusNotFound, apperr.Validation},
		{http.StatusInternalServerError, apperr.Upstream},
		{http.StatusBadGateway, apperr.Upstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"type": "x", "message": "Incorrect API key provided: sk-te****"},
				})
			})
			_, err := c.ChatCompletion(context.Background(), "sk-test", ChatRequest{Model: "gpt-4o"})
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestUploadFile_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "fine-tune", r.FormValue("purpose"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "data.jsonl", hdr.Filename)
		assert.Equal(t, "{\"a\":1}\n", string(data))

		json.NewEncoder(w).Encode(map[string]string{"id": "file-123", "purpose": "fine-tune"})
	})

	id, err := c.UploadFile(context.Background(), "sk-test", "data.jsonl", []byte("{\"a\":1}\n"), "fine-tune")
	require.NoError(t, err)
	assert.Equal(t, "file-123", id)
}

func TestCreateFineTuningJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fine_tuning/jobs", r.URL.Path)
		var req JobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "file-123", req.TrainingFile)
		assert.Equal(t, "chatbot-v2", req.Suffix)
		require.NotNil(t, req.Hyperparameters)
		assert.Equal(t, 6, req.Hyperparameters.NEpochs)

		json.NewEncoder(w).Encode(FineTuningJob{ID: "ftjob-1", Status: "validating_files"})
	})

	job, err := c.CreateFineTuningJob(context.Background(), "sk-test", JobRequest{
		TrainingFile:    "file-123",
		Model:           "gpt-4o-mini-2024-07-18",
		Suffix:          "chatbot-v2",
		Hyperparameters: &Hyperparameters{NEpochs: 6, BatchSize: 11, LearningRateMultiplier: 0.05},
	})
	require.NoError(t, err)
	assert.Equal(t, "ftjob-1", job.ID)
}

func TestGetAndListFineTuningJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fine_tuning/jobs/ftjob-1":
			json.NewEncoder(w).Encode(FineTuningJob{ID: "ftjob-1", Status: "succeeded", FineTunedModel: "ft:gpt-4o-mini:org:chatbot-v1:abc"})
		case "/fine_tuning/jobs":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			json.NewEncoder(w).Encode(map[string]any{
				"data": []FineTuningJob{{ID: "ftjob-1", Status: "succeeded"}, {ID: "ftjob-2", Status: "running"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	job, err := c.GetFineTuningJob(context.Background(), "sk-test", "ftjob-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", job.Status)

	jobs, err := c.ListFineTuningJobs(context.Background(), "sk-test", 100)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestTransportFailureIsTransient(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.ChatCompletion(context.Background(), "sk-test", ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
}
