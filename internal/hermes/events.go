package hermes

import "time"

const (
	SubjectJobSubmitted = "fscs.finetune.submitted"
	SubjectJobCompleted = "fscs.finetune.completed"
	SubjectChatFiltered = "fscs.chat.filtered"
)

// JobSubmitted is emitted once a fine-tuning job has been created.
type JobSubmitted struct {
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	ModelName string    `json:"model_name"`
	BaseModel string    `json:"base_model"`
	Examples  int       `json:"examples"`
	Files     int       `json:"files"`
	Epochs    int       `json:"n_epochs"`
	Cost      int       `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
}

// JobCompleted is emitted the first time polling observes a terminal status.
type JobCompleted struct {
	UserID         string    `json:"user_id"`
	JobID          string    `json:"job_id"`
	Status         string    `json:"status"`
	FineTunedModel string    `json:"fine_tuned_model,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatFiltered records that the response validator changed a reply.
type ChatFiltered struct {
	UserID        string    `json:"user_id"`
	Model         string    `json:"model"`
	Actions       []string  `json:"actions"`
	Regenerations int       `json:"regenerations"`
	Suppressed    bool      `json:"suppressed"`
	Timestamp     time.Time `json:"timestamp"`
}
