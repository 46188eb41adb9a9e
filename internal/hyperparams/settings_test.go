package hyperparams

import (
	"errors"
	"strings"
	"testing"

	"github.com/neooriginal/FSCS/internal/training"
)

func TestCalculateSettings_InvalidInput(t *testing.T) {
	for _, n := range []int{0, -1, -5600} {
		if _, err := CalculateSettings(n); !errors.Is(err, ErrInvalidLineCount) {
			t.Errorf("CalculateSettings(%d): expected ErrInvalidLineCount, got %v", n, err)
		}
	}
}

func TestCalculateSettings_Table(t *testing.T) {
	tests := []struct {
		lines     int
		epochs    int
		batchSize int
		lr        float64
	}{
		{lines: 1, epochs: 6, batchSize: 10, lr: 3.7416573867739413},
		{lines: 499, epochs: 6, batchSize: 10, lr: 0.1674995887291933},
		{lines: 5600, epochs: 6, batchSize: 11, lr: 0.05},
		{lines: 22400, epochs: 6, batchSize: 22, lr: 0.05},
		{lines: 1000000, epochs: 6, batchSize: 32, lr: 0.05},
	}
	for _, tt := range tests {
		got, err := CalculateSettings(tt.lines)
		if err != nil {
			t.Fatalf("CalculateSettings(%d): %v", tt.lines, err)
		}
		if got.Epochs != tt.epochs {
			t.Errorf("lines=%d: epochs = %d, want %d", tt.lines, got.Epochs, tt.epochs)
		}
		if got.BatchSize != tt.batchSize {
			t.Errorf("lines=%d: batch = %d, want %d", tt.lines, got.BatchSize, tt.batchSize)
		}
		if diff := got.LearningRateMultiplier - tt.lr; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("lines=%d: lr = %v, want %v", tt.lines, got.LearningRateMultiplier, tt.lr)
		}
	}
}

func TestCalculateSettings_Bounds(t *testing.T) {
	for n := 1; n <= 2_000_000; n = n*3 + 7 {
		s, err := CalculateSettings(n)
		if err != nil {
			t.Fatalf("CalculateSettings(%d): %v", n, err)
		}
		if s.Epochs != 6 {
			t.Errorf("lines=%d: epochs %d outside [6,6]", n, s.Epochs)
		}
		if s.BatchSize < 10 || s.BatchSize > 32 {
			t.Errorf("lines=%d: batch %d outside [10,32]", n, s.BatchSize)
		}
		if s.LearningRateMultiplier < 0.05 || s.LearningRateMultiplier > 5 {
			t.Errorf("lines=%d: lr %v outside [0.05,5]", n, s.LearningRateMultiplier)
		}
	}
}

func sampleExamples(n int) []training.Example {
	out := make([]training.Example, n)
	for i := range out {
		out[i] = training.Example{
			System:    "You are Anna.",
			User:      strings.Repeat("question ", 20),
			Assistant: strings.Repeat("answer ", 20),
		}
	}
	return out
}

func TestCalculateCost_Empty(t *testing.T) {
	if got := CalculateCost(nil, 6); got != 1 {
		t.Errorf("expected 1 for no examples, got %d", got)
	}
}

func TestCalculateCost_Formula(t *testing.T) {
	// Each example serializes to a fixed length; 1000 of them at 6 epochs.
	ex := sampleExamples(1000)
	data, _ := ex[0].MarshalJSON()
	perExample := float64(len(data))/4 + 88
	raw := 1000 * perExample * 6 * 0.000003
	want := int(raw)
	if float64(want) < raw {
		want++
	}
	want++

	if got := CalculateCost(ex, 6); got != want {
		t.Errorf("CalculateCost = %d, want %d", got, want)
	}
}

func TestCalculateCost_Monotonic(t *testing.T) {
	prev := 0
	for _, n := range []int{1, 10, 100, 1000, 5000, 20000} {
		got := CalculateCost(sampleExamples(n), 6)
		if got < prev {
			t.Errorf("cost decreased from %d to %d at n=%d", prev, got, n)
		}
		if got < 1 {
			t.Errorf("cost %d below 1", got)
		}
		prev = got
	}
}

func TestCalculateCost_CountsUnescapedMarkup(t *testing.T) {
	ex := make([]training.Example, 1000)
	for i := range ex {
		ex[i] = training.Example{System: "You are Anna.", User: "<3 & see you", Assistant: "a > b & c"}
	}
	line := `{"messages":[{"role":"system","content":"You are Anna."},` +
		`{"role":"user","content":"<3 & see you"},{"role":"assistant","content":"a > b & c"}]}`

	data, _ := ex[0].MarshalJSON()
	if string(data) != line {
		t.Fatalf("MarshalJSON = %s, want %s", data, line)
	}

	raw := 1000 * (float64(len(line))/4 + 88) * 6 * 0.000003
	want := int(raw)
	if float64(want) < raw {
		want++
	}
	want++

	if got := CalculateCost(ex, 6); got != want {
		t.Errorf("CalculateCost = %d, want %d", got, want)
	}
}
