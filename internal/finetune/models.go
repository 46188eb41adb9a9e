package finetune

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/neooriginal/FSCS/internal/modelcache"
	"github.com/neooriginal/FSCS/internal/openai"
	"github.com/neooriginal/FSCS/internal/retry"
	"github.com/neooriginal/FSCS/internal/session"
)

const (
	modelPrefix = "chatbot-"
	listLimit   = 100
)

var versionRe = regexp.MustCompile(`chatbot-v(\d+)`)

// FineTunedModel is a model produced by a succeeded job of ours.
type FineTunedModel struct {
	ID        string `json:"id"`
	JobID     string `json:"jobId"`
	CreatedAt int64  `json:"createdAt"`
}

func modelsCacheKey(userKey string) string { return "models:" + userKey }

// ListFineTunedModels returns the credential's succeeded chatbot models.
// Results are cached per user for a short time.
func (o *Orchestrator) ListFineTunedModels(ctx context.Context, credential string) ([]FineTunedModel, error) {
	if o.models == nil {
		return o.listFineTunedModels(ctx, credential)
	}
	return modelcache.Load(ctx, o.models, modelsCacheKey(session.UserKey(credential)), func(ctx context.Context) ([]FineTunedModel, error) {
		return o.listFineTunedModels(ctx, credential)
	})
}

func (o *Orchestrator) listFineTunedModels(ctx context.Context, credential string) ([]FineTunedModel, error) {
	jobs, err := retry.Do(ctx, o.retry, o.logger, func(ctx context.Context) ([]openai.FineTuningJob, error) {
		return o.provider.ListFineTuningJobs(ctx, credential, listLimit)
	})
	o.metrics.ProviderCall("list_jobs", err)
	if err != nil {
		return nil, err
	}

	models := make([]FineTunedModel, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != "succeeded" || !strings.Contains(j.FineTunedModel, modelPrefix) {
			continue
		}
		models = append(models, FineTunedModel{ID: j.FineTunedModel, JobID: j.ID, CreatedAt: j.CreatedAt})
	}
	return models, nil
}

// LatestModel returns the most recently created fine-tuned model, if any.
func (o *Orchestrator) LatestModel(ctx context.Context, credential string) (string, bool, error) {
	models, err := o.ListFineTunedModels(ctx, credential)
	if err != nil {
		return "", false, err
	}
	if len(models) == 0 {
		return "", false, nil
	}
	sorted := append([]FineTunedModel(nil), models...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	return sorted[0].ID, true, nil
}

// NextModelName returns chatbot-v<N> one above the highest existing
// version. A listing failure yields a random chatbot-<suffix> name.
func (o *Orchestrator) NextModelName(ctx context.Context, credential string) string {
	models, err := o.listFineTunedModels(ctx, credential)
	if err != nil {
		o.logger.Warn("could not list models for versioning, using random name", "user_id", session.UserID(credential), "error", err)
		return modelPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return nextVersionName(models)
}

func nextVersionName(models []FineTunedModel) string {
	highest := 0
	for _, m := range models {
		match := versionRe.FindStringSubmatch(m.ID)
		if match == nil {
			continue
		}
		if v, err := strconv.Atoi(match[1]); err == nil && v > highest {
			highest = v
		}
	}
	return "chatbot-v" + strconv.Itoa(highest+1)
}
