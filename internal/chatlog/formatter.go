// Package chatlog detects the format of exported chat logs and parses them
// into an ordered sequence of raw messages.
package chatlog

import (
	"regexp"
	"strings"
)

// RawMessage is a single message as it appears in an exported log. The
// timestamp keeps the exporting platform's own display convention.
type RawMessage struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
}

// Formatter recognises and parses one chat export format. Detect must be a
// cheap structural test that does not depend on ParseChat succeeding.
type Formatter interface {
	Name() string
	Detect(text string) bool
	ParseChat(text string) []RawMessage
}

// Registry is the ordered set of known formatters.
type Registry struct {
	formatters []Formatter
}

func NewRegistry(formatters ...Formatter) *Registry {
	return &Registry{formatters: formatters}
}

// DefaultRegistry returns every built-in formatter in detection order.
func DefaultRegistry() *Registry {
	return NewRegistry(NewDiscord(), NewWhatsApp())
}

func (r *Registry) Register(f Formatter) {
	r.formatters = append(r.formatters, f)
}

func (r *Registry) All() []Formatter {
	out := make([]Formatter, len(r.formatters))
	copy(out, r.formatters)
	return out
}

// Detect returns every formatter whose detector accepts text, in
// registration order.
func (r *Registry) Detect(text string) []Formatter {
	var matches []Formatter
	for _, f := range r.formatters {
		if f.Detect(text) {
			matches = append(matches, f)
		}
	}
	return matches
}

var (
	phoneRe = regexp.MustCompile(`\+\d{1,3} \d{3} \d{3} \d{2} \d{2}`)
	emojiRe = regexp.MustCompile(`:[^ ]+:`)
)

// stripPerLine applies each pattern to every line of s independently.
func stripPerLine(s string, patterns []*regexp.Regexp, literals []string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		for _, lit := range literals {
			line = strings.ReplaceAll(line, lit, "")
		}
		for _, re := range patterns {
			line = re.ReplaceAllString(line, "")
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
