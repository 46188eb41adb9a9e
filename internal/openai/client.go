package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible API. The caller's credential is
// passed on every call because each user brings their own key.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(serverURL string) {
	c.baseURL = strings.TrimRight(serverURL, "/")
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Hyperparameters are sent verbatim with a fine-tuning job.
type Hyperparameters struct {
	NEpochs                int     `json:"n_epochs"`
	BatchSize              int     `json:"batch_size"`
	LearningRateMultiplier float64 `json:"learning_rate_multiplier"`
}

type JobRequest struct {
	TrainingFile    string           `json:"training_file"`
	Model           string           `json:"model"`
	Suffix          string           `json:"suffix,omitempty"`
	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
}

type FineTuningJob struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Model          string `json:"model"`
	FineTunedModel string `json:"fine_tuned_model"`
	CreatedAt      int64  `json:"created_at"`
	FinishedAt     int64  `json:"finished_at"`
	TrainingFile   string `json:"training_file"`
}

type jobList struct {
	Data    []FineTuningJob `json:"data"`
	HasMore bool            `json:"has_more"`
}

type fileObject struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

// ChatCompletion returns the content of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, apiKey string, req ChatRequest) (string, error) {
	var resp chatResponse
	if err := c.doJSON(ctx, apiKey, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w", malformed("empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// UploadFile uploads data as a multipart file and returns the file id.
func (c *Client) UploadFile(ctx context.Context, apiKey, filename string, data []byte, purpose string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return "", fmt.Errorf("write purpose: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var file fileObject
	if err := c.do(req, apiKey, &file); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if file.ID == "" {
		return "", fmt.Errorf("upload file: %w", malformed("missing file id"))
	}
	return file.ID, nil
}

func (c *Client) CreateFineTuningJob(ctx context.Context, apiKey string, req JobRequest) (*FineTuningJob, error) {
	var job FineTuningJob
	if err := c.doJSON(ctx, apiKey, http.MethodPost, "/fine_tuning/jobs", req, &job); err != nil {
		return nil, fmt.Errorf("create fine-tuning job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("create fine-tuning job: %w", malformed("missing job id"))
	}
	return &job, nil
}

func (c *Client) GetFineTuningJob(ctx context.Context, apiKey, jobID string) (*FineTuningJob, error) {
	var job FineTuningJob
	path := "/fine_tuning/jobs/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, path, nil, &job); err != nil {
		return nil, fmt.Errorf("get fine-tuning job: %w", err)
	}
	return &job, nil
}

func (c *Client) ListFineTuningJobs(ctx context.Context, apiKey string, limit int) ([]FineTuningJob, error) {
	var list jobList
	path := "/fine_tuning/jobs?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("list fine-tuning jobs: %w", err)
	}
	return list.Data, nil
}

func (c *Client) doJSON(ctx context.Context, apiKey, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, apiKey, out)
}

func (c *Client) do(req *http.Request, apiKey string, out any) error {
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return malformed(fmt.Sprintf("unmarshal response: %v", err))
	}
	return nil
}
