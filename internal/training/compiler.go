// Package training turns normalized chat messages into supervised
// fine-tuning examples.
package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/neooriginal/FSCS/internal/chatlog"
)

// Turn is one or more consecutive messages from the same sender.
type Turn struct {
	Sender string
	Text   string
}

// Example is one (system, user, assistant) training triple.
type Example struct {
	System    string
	User      string
	Assistant string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is the wire shape of one JSONL line.
type Record struct {
	Messages []Message `json:"messages"`
}

func (e Example) Record() Record {
	return Record{Messages: []Message{
		{Role: "system", Content: e.System},
		{Role: "user", Content: e.User},
		{Role: "assistant", Content: e.Assistant},
	}}
}

// MarshalJSON matches the bytes EncodeJSONL writes, without HTML escaping.
func (e Example) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.Record()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type Compiler struct {
	logger *slog.Logger
}

func NewCompiler(logger *slog.Logger) *Compiler {
	return &Compiler{logger: logger}
}

// Compile runs the full pipeline: clean, filter, dedup, merge, drop a
// leading clone turn, pair. Output depends only on the inputs.
func (c *Compiler) Compile(msgs []chatlog.RawMessage, systemPrompt, cloneName string) []Example {
	cleaned := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		text := Clean(m.Text)
		if !IsValid(text) {
			continue
		}
		cleaned = append(cleaned, Turn{Sender: m.Sender, Text: text})
	}

	turns := Merge(Dedup(cleaned))
	if len(turns) > 0 && turns[0].Sender == cloneName {
		turns = turns[1:]
	}

	examples := Pair(turns, systemPrompt)
	if len(examples) == 0 {
		c.logger.Warn("no valid message pairs found for fine-tuning", "messages", len(msgs), "clone", cloneName)
	}
	return examples
}

// Dedup drops repeated (sender, text) pairs, keeping the first occurrence.
func Dedup(turns []Turn) []Turn {
	seen := make(map[Turn]struct{}, len(turns))
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Merge joins consecutive same-sender turns with newlines. Merged turns
// that fail validation are dropped and their neighbours merged again, so
// no two adjacent turns in the result share a sender.
func Merge(turns []Turn) []Turn {
	for {
		merged := mergeAdjacent(turns)
		valid := merged[:0]
		for _, t := range merged {
			if IsValid(t.Text) {
				valid = append(valid, t)
			}
		}
		if len(valid) == len(merged) {
			return valid
		}
		turns = valid
	}
}

func mergeAdjacent(turns []Turn) []Turn {
	var out []Turn
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Sender == t.Sender {
			out[n-1].Text += "\n" + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}

// Pair maps turn[2i] to the user side and turn[2i+1] to the assistant side.
// A trailing unpaired turn is discarded.
func Pair(turns []Turn, systemPrompt string) []Example {
	examples := make([]Example, 0, len(turns)/2)
	for i := 0; i+1 < len(turns); i += 2 {
		user, assistant := turns[i].Text, turns[i+1].Text
		if user == "" || assistant == "" {
			continue
		}
		examples = append(examples, Example{System: systemPrompt, User: user, Assistant: assistant})
	}
	return examples
}

// EncodeJSONL writes one JSON record per line.
func EncodeJSONL(w io.Writer, examples []Example) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, e := range examples {
		if err := enc.Encode(e.Record()); err != nil {
			return fmt.Errorf("encode example %d: %w", i, err)
		}
	}
	return nil
}
