// Package hyperparams derives fine-tuning hyperparameters and a cost
// projection from the size of a training set.
package hyperparams

import (
	"errors"
	"math"
)

// Reference dataset the scaling is anchored to.
const (
	baselineLines        = 5600
	baselineEpochs       = 5
	baselineBatchSize    = 11
	baselineLearningRate = 0.05

	smallDatasetLines  = 500
	smallDatasetEpochs = 10
	largeDatasetLines  = 100000
	largeDatasetEpochs = 3

	maxEpochs = 6
	// minEpochs is applied last and overrides both fixed branches above.
	minEpochs = 6

	minBatchSize = 10
	maxBatchSize = 32
	minLRMult    = 0.05
	maxLRMult    = 5
)

var ErrInvalidLineCount = errors.New("total line count must be at least 1")

type Settings struct {
	Epochs                 int     `json:"n_epochs"`
	BatchSize              int     `json:"batch_size"`
	LearningRateMultiplier float64 `json:"learning_rate_multiplier"`
}

// CalculateSettings scales the baseline hyperparameters by
// sqrt(totalLines/5600).
func CalculateSettings(totalLines int) (Settings, error) {
	if totalLines < 1 {
		return Settings{}, ErrInvalidLineCount
	}

	scaling := math.Sqrt(float64(totalLines) / baselineLines)

	var epochs float64
	switch {
	case totalLines < smallDatasetLines:
		epochs = smallDatasetEpochs
	case totalLines > largeDatasetLines:
		epochs = largeDatasetEpochs
	default:
		epochs = math.Min(maxEpochs, baselineEpochs/scaling)
	}
	epochs = math.Max(math.Floor(epochs), minEpochs)

	batch := clamp(math.Round(baselineBatchSize*scaling), minBatchSize, maxBatchSize)
	lr := clamp(baselineLearningRate/scaling, minLRMult, maxLRMult)

	return Settings{
		Epochs:                 int(epochs),
		BatchSize:              int(batch),
		LearningRateMultiplier: lr,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
