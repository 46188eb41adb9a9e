package hyperparams

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/neooriginal/FSCS/internal/training"
)

const (
	charsPerToken        = 4
	promptOverheadTokens = 88
	pricePerToken        = 0.0000030
)

// EstimateTokens is a character/4 heuristic, good enough for a cost display.
func EstimateTokens(s string) float64 {
	return float64(len(s)) / charsPerToken
}

// CalculateCost projects the training cost from the serialized size of each
// example. The result is always at least 1.
func CalculateCost(examples []training.Example, epochs int) int {
	if len(examples) == 0 {
		return 1
	}

	var (
		total float64
		buf   bytes.Buffer
	)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, e := range examples {
		buf.Reset()
		if err := enc.Encode(e.Record()); err != nil {
			continue
		}
		total += EstimateTokens(strings.TrimSuffix(buf.String(), "\n")) + promptOverheadTokens
	}
	avg := total / float64(len(examples))

	return int(math.Ceil(float64(len(examples))*avg*float64(epochs)*pricePerToken)) + 1
}
