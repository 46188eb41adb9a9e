// Package finetune turns a user's uploaded chat logs into a provider
// fine-tuning job and tracks the jobs it has started.
package finetune

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neooriginal/FSCS/internal/apperr"
	"github.com/neooriginal/FSCS/internal/chatlog"
	"github.com/neooriginal/FSCS/internal/hermes"
	"github.com/neooriginal/FSCS/internal/hyperparams"
	"github.com/neooriginal/FSCS/internal/metrics"
	"github.com/neooriginal/FSCS/internal/modelcache"
	"github.com/neooriginal/FSCS/internal/openai"
	"github.com/neooriginal/FSCS/internal/retry"
	"github.com/neooriginal/FSCS/internal/session"
	"github.com/neooriginal/FSCS/internal/slack"
	"github.com/neooriginal/FSCS/internal/training"
	"github.com/neooriginal/FSCS/internal/userdata"
)

const (
	DefaultBaseModel = "gpt-4o-mini-2024-07-18"
	trainingFileName = "training_data.jsonl"
	trainingPurpose  = "fine-tune"
)

// Provider is the subset of the model provider used for fine-tuning.
type Provider interface {
	UploadFile(ctx context.Context, apiKey, filename string, data []byte, purpose string) (string, error)
	CreateFineTuningJob(ctx context.Context, apiKey string, req openai.JobRequest) (*openai.FineTuningJob, error)
	GetFineTuningJob(ctx context.Context, apiKey, jobID string) (*openai.FineTuningJob, error)
	ListFineTuningJobs(ctx context.Context, apiKey string, limit int) ([]openai.FineTuningJob, error)
}

// Notifier tells operators about job lifecycle events.
type Notifier interface {
	PostJobSubmitted(ctx context.Context, job slack.JobSummary) (string, error)
	PostJobCompleted(ctx context.Context, threadTS string, job slack.JobSummary) error
}

type Config struct {
	BaseModel  string
	Provider   Provider
	Normalizer *chatlog.Normalizer
	Compiler   *training.Compiler
	Workspace  *userdata.Workspace
	Sessions   session.SessionStore
	Models     *modelcache.Loader
	Retry      retry.Policy
	Metrics    *metrics.Metrics
	Events     hermes.Publisher
	Notifier   Notifier
	Logger     *slog.Logger
}

type Orchestrator struct {
	baseModel  string
	provider   Provider
	normalizer *chatlog.Normalizer
	compiler   *training.Compiler
	workspace  *userdata.Workspace
	sessions   session.SessionStore
	models     *modelcache.Loader
	retry      retry.Policy
	metrics    *metrics.Metrics
	events     hermes.Publisher
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config) *Orchestrator {
	if cfg.BaseModel == "" {
		cfg.BaseModel = DefaultBaseModel
	}
	if cfg.Events == nil {
		cfg.Events = hermes.Noop{}
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	return &Orchestrator{
		baseModel:  cfg.BaseModel,
		provider:   cfg.Provider,
		normalizer: cfg.Normalizer,
		compiler:   cfg.Compiler,
		workspace:  cfg.Workspace,
		sessions:   cfg.Sessions,
		models:     cfg.Models,
		retry:      cfg.Retry,
		metrics:    cfg.Metrics,
		events:     cfg.Events,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Preview is what the upload screen shows before a job is submitted.
type Preview struct {
	ParsedMessages   int                   `json:"parsedMessages"`
	FineTuneSettings *hyperparams.Settings `json:"fineTuneSettings"`
	Cost             int                   `json:"cost"`
	Message          string                `json:"message,omitempty"`
	Files            []userdata.FileInfo   `json:"files"`
}

// batch is the parsed and compiled content of a user's input directory.
type batch struct {
	examples []training.Example
	lines    int
	files    int
}

// collect normalizes and compiles every uploaded file in name order. Files
// that fail are skipped, and deleted when destructive is set.
func (o *Orchestrator) collect(userKey, prompt string, cloneNames map[string]string, destructive bool) (*batch, error) {
	names, err := o.workspace.Names(userKey)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperr.New(apperr.NoData, "No .txt files found in upload directory")
	}

	b := &batch{}
	for _, name := range names {
		parsed, err := o.parseFile(userKey, name, cloneNames[name])
		if err != nil {
			o.logger.Warn("skipping file", "file", name, "error", err)
			o.metrics.FileParsed("none", false)
			if destructive {
				if rmErr := o.workspace.Remove(userKey, name); rmErr != nil {
					o.logger.Error("failed to remove invalid file", "file", name, "error", rmErr)
				} else {
					o.logger.Info("removed invalid file", "file", name)
				}
			}
			continue
		}
		o.metrics.FileParsed(parsed.Formatter, true)

		b.examples = append(b.examples, o.compiler.Compile(parsed.Messages, prompt, parsed.CloneName)...)
		b.lines += parsed.Lines
		b.files++
	}

	if b.files == 0 {
		return nil, apperr.New(apperr.NoData, "No messages could be successfully parsed from any files")
	}
	return b, nil
}

func (o *Orchestrator) parseFile(userKey, name, cloneName string) (*chatlog.Parsed, error) {
	text, err := o.workspace.Read(userKey, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.ParseFailure, name+": unreadable", err)
	}
	return o.normalizer.Normalize(name, text, cloneName)
}

// Preview parses the uploaded files without uploading or deleting anything.
func (o *Orchestrator) Preview(credential string, cloneNames map[string]string) (*Preview, error) {
	userKey := session.UserKey(credential)

	files, err := o.workspace.Files(userKey)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Preview{Message: "No files uploaded yet.", Files: []userdata.FileInfo{}}, nil
	}

	b, err := o.collect(userKey, "", cloneNames, false)
	if err != nil {
		if apperr.Is(err, apperr.NoData) {
			return &Preview{Message: apperr.PublicMessage(err), Files: files}, nil
		}
		return nil, err
	}

	settings, err := hyperparams.CalculateSettings(b.lines)
	if err != nil {
		return &Preview{Message: "Error calculating fine tune settings", Files: files}, nil
	}

	return &Preview{
		ParsedMessages:   len(b.examples),
		FineTuneSettings: &settings,
		Cost:             hyperparams.CalculateCost(b.examples, settings.Epochs),
		Files:            files,
	}, nil
}

// Submit compiles the uploaded files into a dataset, uploads it and starts
// a fine-tuning job. The upload directory is deleted once the job exists.
func (o *Orchestrator) Submit(ctx context.Context, credential, prompt string, cloneNames map[string]string) (string, error) {
	userKey := session.UserKey(credential)
	userID := session.UserID(credential)

	b, err := o.collect(userKey, prompt, cloneNames, true)
	if err != nil {
		return "", err
	}

	settings, err := hyperparams.CalculateSettings(b.lines)
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, "Error calculating fine tune settings", err)
	}
	if len(b.examples) == 0 {
		return "", apperr.New(apperr.NoData, "No training examples could be built from the uploaded files")
	}
	cost := hyperparams.CalculateCost(b.examples, settings.Epochs)

	var buf bytes.Buffer
	if err := training.EncodeJSONL(&buf, b.examples); err != nil {
		return "", fmt.Errorf("encode training data: %w", err)
	}

	fileID, err := o.provider.UploadFile(ctx, credential, trainingFileName, buf.Bytes(), trainingPurpose)
	o.metrics.ProviderCall("upload_file", err)
	if err != nil {
		return "", fmt.Errorf("upload training file: %w", err)
	}

	name := o.NextModelName(ctx, credential)

	job, err := o.provider.CreateFineTuningJob(ctx, credential, openai.JobRequest{
		TrainingFile: fileID,
		Model:        o.baseModel,
		Suffix:       name,
		Hyperparameters: &openai.Hyperparameters{
			NEpochs:                settings.Epochs,
			BatchSize:              settings.BatchSize,
			LearningRateMultiplier: settings.LearningRateMultiplier,
		},
	})
	o.metrics.ProviderCall("create_job", err)
	if err != nil {
		return "", fmt.Errorf("create fine-tuning job: %w", err)
	}

	now := o.now().UTC()
	o.sessions.StoreJob(userKey, session.Job{
		ID:        job.ID,
		Status:    "pending",
		Settings:  settings,
		ModelName: name,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := o.workspace.RemoveInput(userKey); err != nil {
		o.logger.Error("failed to remove upload directory", "user_id", userID, "error", err)
	}
	if o.models != nil {
		o.models.Invalidate(ctx, modelsCacheKey(userKey))
	}
	o.metrics.JobSubmitted(len(b.examples))

	o.logger.Info("fine-tuning job submitted",
		"user_id", userID,
		"job_id", job.ID,
		"model_name", name,
		"examples", len(b.examples),
		"files", b.files,
		"cost", cost,
	)

	summary := slack.JobSummary{
		UserID:    userID,
		JobID:     job.ID,
		ModelName: name,
		BaseModel: o.baseModel,
		Status:    "pending",
		Examples:  len(b.examples),
		Files:     b.files,
		Epochs:    settings.Epochs,
		Cost:      cost,
	}
	o.announceSubmitted(ctx, userKey, summary, now)

	return job.ID, nil
}

func (o *Orchestrator) announceSubmitted(ctx context.Context, userKey string, s slack.JobSummary, at time.Time) {
	if err := o.events.Publish(hermes.SubjectJobSubmitted, hermes.JobSubmitted{
		UserID:    s.UserID,
		JobID:     s.JobID,
		ModelName: s.ModelName,
		BaseModel: s.BaseModel,
		Examples:  s.Examples,
		Files:     s.Files,
		Epochs:    s.Epochs,
		Cost:      s.Cost,
		Timestamp: at,
	}); err != nil {
		o.logger.Warn("failed to publish job submitted", "job_id", s.JobID, "error", err)
	}

	if o.notifier == nil {
		return
	}
	ts, err := o.notifier.PostJobSubmitted(ctx, s)
	if err != nil {
		o.logger.Warn("failed to post job to slack", "job_id", s.JobID, "error", err)
		return
	}
	o.sessions.UpdateJob(userKey, s.JobID, func(j *session.Job) { j.NotifyThread = ts })
}

// IsTerminal reports whether a provider job status is final.
func IsTerminal(status string) bool {
	switch status {
	case "succeeded", "failed", "cancelled":
		return true
	}
	return false
}

type JobStatus struct {
	Done         bool   `json:"status"`
	StatusDetail string `json:"statusDetail"`
	ID           string `json:"id"`
	Name         string `json:"name"`
}

// JobStatus polls the provider and refreshes the stored job, if known.
func (o *Orchestrator) JobStatus(ctx context.Context, credential, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, apperr.New(apperr.Validation, "job id is required")
	}
	job, err := retry.Do(ctx, o.retry, o.logger, func(ctx context.Context) (*openai.FineTuningJob, error) {
		return o.provider.GetFineTuningJob(ctx, credential, jobID)
	})
	o.metrics.ProviderCall("get_job", err)
	if err != nil {
		return nil, err
	}

	userKey := session.UserKey(credential)
	var (
		transitioned bool
		stored       session.Job
	)
	o.sessions.UpdateJob(userKey, jobID, func(j *session.Job) {
		transitioned = !IsTerminal(j.Status) && IsTerminal(job.Status)
		j.Status = job.Status
		j.FineTunedModel = job.FineTunedModel
		j.UpdatedAt = o.now().UTC()
		stored = *j
	})
	if transitioned {
		o.announceCompleted(ctx, userKey, stored)
	}

	return &JobStatus{
		Done:         job.Status == "succeeded",
		StatusDetail: job.Status,
		ID:           job.ID,
		Name:         job.FineTunedModel,
	}, nil
}

func (o *Orchestrator) announceCompleted(ctx context.Context, userKey string, j session.Job) {
	userID := session.UserIDForKey(userKey)
	if o.models != nil {
		o.models.Invalidate(ctx, modelsCacheKey(userKey))
	}
	o.logger.Info("fine-tuning job finished", "user_id", userID, "job_id", j.ID, "status", j.Status)

	if err := o.events.Publish(hermes.SubjectJobCompleted, hermes.JobCompleted{
		UserID:         userID,
		JobID:          j.ID,
		Status:         j.Status,
		FineTunedModel: j.FineTunedModel,
		Timestamp:      j.UpdatedAt,
	}); err != nil {
		o.logger.Warn("failed to publish job completed", "job_id", j.ID, "error", err)
	}

	if o.notifier == nil {
		return
	}
	err := o.notifier.PostJobCompleted(ctx, j.NotifyThread, slack.JobSummary{
		UserID:         userID,
		JobID:          j.ID,
		ModelName:      j.ModelName,
		Status:         j.Status,
		FineTunedModel: j.FineTunedModel,
	})
	if err != nil {
		o.logger.Warn("failed to post job completion to slack", "job_id", j.ID, "error", err)
	}
}
