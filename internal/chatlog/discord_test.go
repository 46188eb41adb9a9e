package chatlog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscord_Detect(t *testing.T) {
	d := NewDiscord()
	assert.True(t, d.Detect("[12/03/2024 14:05] alice\nhello there"))
	assert.True(t, d.Detect("preamble\n[1/3/2024 09:00] bob\nhi"))
	assert.False(t, d.Detect("01.05.22, 14:30 - John: hi"))
	assert.False(t, d.Detect("just some text"))
}

func TestDiscord_RoundTrip(t *testing.T) {
	want := []RawMessage{
		{Timestamp: "12/03/2024 14:05", Sender: "alice", Text: "are you coming tonight"},
		{Timestamp: "12/03/2024 14:06", Sender: "bob", Text: "yeah probably\nif the bus runs"},
		{Timestamp: "12/03/2024 14:09", Sender: "alice", Text: "cool see you"},
	}

	var sb strings.Builder
	for i, m := range want {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%s] %s\n%s", m.Timestamp, m.Sender, m.Text)
	}
	sb.WriteString("\n")

	got := NewDiscord().ParseChat(sb.String())
	require.Len(t, got, len(want))
	assert.Equal(t, want, got)
}

func TestDiscord_StripsNoise(t *testing.T) {
	input := "[12/03/2024 14:05] alice\ncheck https://example.com/x?y=1 now :smile:\ncall +49 151 234 56 78 later"

	got := NewDiscord().ParseChat(input)
	require.Len(t, got, 1)
	assert.Equal(t, "check  now \ncall  later", got[0].Text)
}

func TestDiscord_BodyWithoutTrailingNewline(t *testing.T) {
	got := NewDiscord().ParseChat("[1/1/2024 10:00] solo\nlast words")
	require.Len(t, got, 1)
	assert.Equal(t, "last words", got[0].Text)
}

func TestDiscord_NoHeaders(t *testing.T) {
	assert.Empty(t, NewDiscord().ParseChat("nothing to see\nhere"))
}
