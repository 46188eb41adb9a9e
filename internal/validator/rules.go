// Package validator post-processes generated chat replies. It suppresses
// or regenerates replies that look fabricated or machine-written.
package validator

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindFabrication Kind = "fabrication"
	KindCasual      Kind = "casual"
	KindMannerism   Kind = "mannerism"
	KindCritic      Kind = "critic"
)

type Action string

const (
	ActionSuppress   Action = "suppress"
	ActionRegenerate Action = "regenerate"
	ActionFallback   Action = "fallback"
	ActionRewrite    Action = "rewrite"
)

// Rule is a named predicate over text.
type Rule struct {
	Name  string
	Kind  Kind
	Match func(string) bool
}

// PatternRule matches a case-insensitive regular expression.
func PatternRule(name string, kind Kind, expr string) Rule {
	re := regexp.MustCompile(`(?i)` + expr)
	return Rule{Name: name, Kind: kind, Match: re.MatchString}
}

// PhraseRule matches a lower-case substring, ignoring case in the input.
func PhraseRule(kind Kind, phrase string) Rule {
	phrase = strings.ToLower(phrase)
	return Rule{
		Name:  phrase,
		Kind:  kind,
		Match: func(s string) bool { return strings.Contains(strings.ToLower(s), phrase) },
	}
}

// RuleSet groups the rules the pipeline runs.
type RuleSet struct {
	Fabrication []Rule
	Casual      []Rule
	Mannerism   []Rule
}

func DefaultRules() *RuleSet {
	return &RuleSet{
		Fabrication: FabricationRules(),
		Casual:      CasualRules(),
		Mannerism:   MannerismRules(),
	}
}

func FabricationRules() []Rule {
	return []Rule{
		PatternRule("scheduling", KindFabrication, `\b(schedule|set up|arrange|book|make)\s+(an|a)?\s*(appointment|meeting|reservation|booking|event)\b`),
		PatternRule("weekday", KindFabrication, `\b(on|at|this|next)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		PatternRule("time_of_day", KindFabrication, `\b\d{1,2}[:.]\d{2}\s*(am|pm)\b`),
		PatternRule("month_day", KindFabrication, `\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2}(st|nd|rd|th)?\b`),
		PatternRule("contact_details", KindFabrication, `\b(my|your)\s+(email|phone|address|number|contact)\b`),
		PatternRule("residence", KindFabrication, `\b(I|we)\s+(live|stay|reside|am located)\s+in\b`),
		PatternRule("preferences", KindFabrication, `\b(I|we)\s+(prefer|like|enjoy|love|hate|dislike)\b`),
		PatternRule("past_experience", KindFabrication, `\b(I|we)\s+(have been|went|traveled|visited)\b`),
		PatternRule("meeting_proposal", KindFabrication, `\b(let's|we can|we should|we will|I will|I can)\s+(meet|talk|discuss|catch up|connect)\b`),
		PatternRule("meeting_question", KindFabrication, `\b(would|could)\s+(you|we)\s+(like to|want to|be able to)\s+(meet|talk|discuss|catch up|connect)\b`),
	}
}

// CasualRules are matched against the user's message, not the reply.
func CasualRules() []Rule {
	return []Rule{
		PatternRule("greeting", KindCasual, `\b(hi|hello|hey|what's up|wassup|sup|how are you|how's it going)\b`),
		PatternRule("salutation", KindCasual, `\b(nice|good)\s+(day|morning|afternoon|evening)\b`),
		PatternRule("farewell", KindCasual, `\b(talk|speak|chat)\s+(later|soon)\b`),
		PatternRule("small_talk", KindCasual, `\b(what's new|what are you up to|what are you doing)\b`),
	}
}

var mannerismPhrases = []string{
	"as an ai", "i'm an ai", "ai assistant", "artificial intelligence",
	"i don't have personal", "i don't have the ability",
	"i'm not able to", "i cannot access", "i don't have access",
	"i'd be happy to help", "i'd be happy to assist",
	"is there anything else", "how can i assist", "how else can i help",
	"my training", "my programming", "my knowledge", "my capabilities",
	"i'm designed to", "i was trained to", "i am not able to",
}

func MannerismRules() []Rule {
	rules := make([]Rule, 0, len(mannerismPhrases))
	for _, p := range mannerismPhrases {
		rules = append(rules, PhraseRule(KindMannerism, p))
	}
	return rules
}

// FirstMatch returns the first rule matching s.
func FirstMatch(rules []Rule, s string) (Rule, bool) {
	for _, r := range rules {
		if r.Match(s) {
			return r, true
		}
	}
	return Rule{}, false
}
