package chatlog

import (
	"regexp"
	"strings"
)

// whatsappLayout describes one timestamp/sender arrangement of a WhatsApp
// export line. The prefix captures date, time and sender in that order.
type whatsappLayout struct {
	name   string
	prefix string
}

var whatsappLayouts = []whatsappLayout{
	// 01.05.22, 14:30 - John Doe: Hello   (also 05/01/22 and HH:MM:SS)
	{"day-month-year-24h", `(\d{2}\.\d{2}\.\d{2,4}|\d{2}/\d{2}/\d{2,4}),\s(\d{2}:\d{2}(?::\d{2})?)\s-\s(.*?)`},
	// 8/14/2024 2:22 PM - me_too_: Hello
	{"month-day-year-12h", `(\d{1,2}/\d{1,2}/\d{4})\s(\d{1,2}:\d{2}\s(?:AM|PM))\s-\s([\p{L}\p{N}_]+)`},
	// 8/2024 2:22 PM - me_too_: Hello
	{"month-year-12h", `(\d{1,2}/\d{4})\s(\d{1,2}:\d{2}\s(?:AM|PM))\s-\s([\p{L}\p{N}_]+)`},
}

// Separators between sender and message, strongest first so that
// "Name: hi" never yields the sender "Name:".
var whatsappSeparators = []string{`:\s`, `:`, `\s`}

// whatsappStoplist holds platform boilerplate removed from message bodies.
var whatsappStoplist = []string{
	"Selbstlöschende Nachrichten wurden deaktiviert. Tippe zum Ändern.",
	"Nachrichten und Anrufe sind Ende-zu-Ende-verschlüsselt. Niemand außerhalb dieses Chats kann sie lesen oder anhören, nicht einmal WhatsApp. Tippe, um mehr zu erfahren.",
	"<Medien ausgeschlossen>",
	"Messages and calls are end-to-end encrypted. No one outside of this chat, not even WhatsApp, can read or listen to them. Tap to learn more.",
	"Disappearing messages were turned off. Tap to change.",
	"<Media omitted>",
}

// WhatsApp parses exported WhatsApp chats line by line. Messages spanning
// several physical lines are not supported: continuation lines are skipped.
type WhatsApp struct {
	patterns []*regexp.Regexp
}

func NewWhatsApp() *WhatsApp {
	w := &WhatsApp{}
	for _, sep := range whatsappSeparators {
		for _, l := range whatsappLayouts {
			w.patterns = append(w.patterns, regexp.MustCompile(`(?i)`+l.prefix+sep+`(.*)`))
		}
	}
	return w
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Detect(text string) bool {
	for _, p := range w.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func (w *WhatsApp) ParseChat(text string) []RawMessage {
	var msgs []RawMessage
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if msg, ok := w.parseLine(line); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// parseLine strips platform notices from the whole line before matching, so
// a notice line such as "12/31/20, 10:00 - Messages and calls are ..." is
// left with no sender and skipped.
func (w *WhatsApp) parseLine(line string) (RawMessage, bool) {
	line = stripPerLine(line, nil, whatsappStoplist)
	for _, p := range w.patterns {
		m := p.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sender := strings.TrimSpace(m[3])
		if sender == "" {
			continue
		}
		return RawMessage{
			Timestamp: m[1] + ", " + m[2],
			Sender:    sender,
			Text:      strings.TrimSpace(stripPerLine(m[4], []*regexp.Regexp{phoneRe, emojiRe}, nil)),
		}, true
	}
	return RawMessage{}, false
}
