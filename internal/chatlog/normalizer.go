package chatlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neooriginal/FSCS/internal/apperr"
)

const (
	// CloneNameTag marks a line naming the person being cloned.
	CloneNameTag = "CloneNameTag:"

	// DefaultCloneName is used when neither the file nor the caller names one.
	DefaultCloneName = "AI Assistant"

	minLineLength = 5
)

var ErrUnparseable = errors.New("no formatter recognised the file")

// Parsed is the canonical result of normalizing one file.
type Parsed struct {
	File         string
	Formatter    string
	CloneName    string
	Messages     []RawMessage
	Lines        int
	OtherSenders []string
}

type Normalizer struct {
	registry *Registry
	logger   *slog.Logger
}

func NewNormalizer(registry *Registry, logger *slog.Logger) *Normalizer {
	return &Normalizer{registry: registry, logger: logger}
}

// Normalize detects the file's format and parses it. cloneName, when set,
// overrides any CloneNameTag line in the file. Every failure is reported
// as a parse_failure so callers can skip the file without aborting a batch.
func (n *Normalizer) Normalize(file, text, cloneName string) (parsed *Parsed, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = apperr.Wrap(apperr.ParseFailure, fmt.Sprintf("%s: processing failed", file), fmt.Errorf("panic: %v", r))
		}
	}()

	lines := CountLines(text)
	tagged, body := extractCloneName(text)
	if cloneName == "" {
		cloneName = tagged
	}
	if cloneName == "" {
		n.logger.Warn("no clone name found, using default", "file", file, "default", DefaultCloneName)
		cloneName = DefaultCloneName
	}

	formatters := n.registry.Detect(body)
	if len(formatters) == 0 {
		return nil, apperr.Wrap(apperr.ParseFailure, fmt.Sprintf("%s: unrecognised chat format", file), ErrUnparseable)
	}
	if len(formatters) > 1 {
		names := make([]string, len(formatters))
		for i, f := range formatters {
			names[i] = f.Name()
		}
		n.logger.Warn("multiple formatters matched, using first", "file", file, "formatters", names)
	}
	f := formatters[0]

	msgs := f.ParseChat(body)
	if len(msgs) == 0 {
		return nil, apperr.New(apperr.ParseFailure, fmt.Sprintf("%s: no messages found", file))
	}

	others := otherSenders(msgs, cloneName)
	if len(others) == 0 {
		return nil, apperr.New(apperr.ParseFailure, fmt.Sprintf("%s: no other participant besides %q", file, cloneName))
	}
	if len(others) > 1 {
		n.logger.Info("multiple participants found, using all messages", "file", file, "participants", len(others))
	}

	return &Parsed{
		File:         file,
		Formatter:    f.Name(),
		CloneName:    cloneName,
		Messages:     msgs,
		Lines:        lines,
		OtherSenders: others,
	}, nil
}

// CountLines returns the number of lines longer than five characters once
// trimmed.
func CountLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if len(strings.TrimSpace(line)) > minLineLength {
			count++
		}
	}
	return count
}

// ExtractCloneName returns the name from the first CloneNameTag line.
func ExtractCloneName(text string) (string, bool) {
	name, _ := extractCloneName(text)
	return name, name != ""
}

// extractCloneName returns the first tagged name and text with every tag
// line removed.
func extractCloneName(text string) (string, string) {
	if !strings.Contains(text, CloneNameTag) {
		return "", text
	}
	var name string
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		idx := strings.Index(line, CloneNameTag)
		if idx < 0 {
			kept = append(kept, line)
			continue
		}
		if name == "" {
			name = strings.TrimSpace(line[idx+len(CloneNameTag):])
		}
	}
	return name, strings.Join(kept, "\n")
}

func otherSenders(msgs []RawMessage, cloneName string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range msgs {
		if m.Sender == cloneName || seen[m.Sender] {
			continue
		}
		seen[m.Sender] = true
		names = append(names, m.Sender)
	}
	return names
}
