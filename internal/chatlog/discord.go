package chatlog

import (
	"regexp"
	"strings"
)

var (
	discordDetectRe = regexp.MustCompile(`(?m)^\[\d{1,2}/\d{1,2}/\d{4} \d{2}:\d{2}\]\s+\S+`)
	discordHeaderRe = regexp.MustCompile(`\[(\d{1,2}/\d{1,2}/\d{4} \d{2}:\d{2})\]\s+(\S+)\s*\n`)
	blankLineRe     = regexp.MustCompile(`\n\s*\n`)
	urlRe           = regexp.MustCompile(`https?://[^ ]+`)
)

// Discord parses logs made of "[DD/MM/YYYY HH:MM] sender" headers, each
// followed by a body that runs until a blank line or the end of input.
type Discord struct{}

func NewDiscord() *Discord { return &Discord{} }

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Detect(text string) bool {
	return discordDetectRe.MatchString(text)
}

func (d *Discord) ParseChat(text string) []RawMessage {
	var msgs []RawMessage
	pos := 0
	for pos < len(text) {
		loc := discordHeaderRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		bodyStart := pos + loc[1]
		bodyEnd := discordBodyEnd(text, bodyStart)

		msgs = append(msgs, RawMessage{
			Timestamp: text[pos+loc[2] : pos+loc[3]],
			Sender:    text[pos+loc[4] : pos+loc[5]],
			Text:      cleanDiscordBody(strings.TrimSpace(text[bodyStart:bodyEnd])),
		})
		pos = bodyEnd
	}
	return msgs
}

// discordBodyEnd finds the first position at or after start that is followed
// by a blank line, or the end of input ignoring one trailing newline.
func discordBodyEnd(text string, start int) int {
	end := len(text)
	if strings.HasSuffix(text, "\n") && end-1 >= start {
		end--
	}
	if loc := blankLineRe.FindStringIndex(text[start:]); loc != nil && start+loc[0] < end {
		end = start + loc[0]
	}
	return end
}

func cleanDiscordBody(body string) string {
	return stripPerLine(body, []*regexp.Regexp{urlRe, phoneRe, emojiRe}, nil)
}
