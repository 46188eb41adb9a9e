package training

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinWords    = 3
	MaxTextRune = 32000
)

var (
	zeroWidth = strings.NewReplacer(
		"\u200b", "", "\u200c", "", "\u200d", "", "\u200e", "", "\u200f", "",
		"\u2060", "", "\ufeff", "",
	)
	editMarkerRe = regexp.MustCompile(`(?i)<this message was edited>|<diese nachricht wurde bearbeitet>|\(edited\)|\(bearbeitet\)`)
	cleanURLRe   = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	bracketRe    = regexp.MustCompile(`\[[^\]\n]*\]`)
	horizontalWS = regexp.MustCompile(`[^\S\n]+`)
)

// Clean normalizes message text: zero-width marks, edit markers, URLs and
// bracketed annotations are removed, whitespace inside a line collapses to
// one space and blank lines disappear. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = zeroWidth.Replace(s)
	s = editMarkerRe.ReplaceAllString(s, "")
	s = cleanURLRe.ReplaceAllString(s, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r", "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(horizontalWS.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// IsValid reports whether text carries enough information to train on.
func IsValid(s string) bool {
	if len(strings.Fields(s)) < MinWords {
		return false
	}
	if utf8.RuneCountInString(s) > MaxTextRune {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
