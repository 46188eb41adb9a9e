package chatlog

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neooriginal/FSCS/internal/apperr"
)

func testNormalizer() *Normalizer {
	return NewNormalizer(DefaultRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const whatsappChat = "CloneNameTag: Anna\n" +
	"01.05.22, 14:30 - Ben: are you coming to the thing\n" +
	"01.05.22, 14:31 - Anna: yes I will be there soon\n" +
	"ok\n"

func TestNormalize_TaggedClone(t *testing.T) {
	p, err := testNormalizer().Normalize("chat.txt", whatsappChat, "")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", p.Formatter)
	assert.Equal(t, "Anna", p.CloneName)
	assert.Equal(t, 3, p.Lines)
	assert.Equal(t, []string{"Ben"}, p.OtherSenders)
	require.Len(t, p.Messages, 2)
	assert.Equal(t, "Ben", p.Messages[0].Sender)
}

func TestNormalize_ExternalNameWins(t *testing.T) {
	p, err := testNormalizer().Normalize("chat.txt", whatsappChat, "Ben")
	require.NoError(t, err)
	assert.Equal(t, "Ben", p.CloneName)
	assert.Equal(t, []string{"Anna"}, p.OtherSenders)
}

func TestNormalize_NoticesAreNotParticipants(t *testing.T) {
	text := "12/31/20, 10:00 - Messages and calls are end-to-end encrypted. No one outside of this chat, not even WhatsApp, can read or listen to them. Tap to learn more.\n" +
		"12/31/20, 10:00 - Disappearing messages were turned off. Tap to change.\n" +
		"12/31/20, 10:01 - Anna: are you coming tonight\n" +
		"12/31/20, 10:02 - Ben: yes I will be there\n"

	p, err := testNormalizer().Normalize("chat.txt", text, "Ben")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna"}, p.OtherSenders)
	assert.Len(t, p.Messages, 2)
}

func TestNormalize_DefaultCloneName(t *testing.T) {
	text := "[12/03/2024 14:05] alice\nhello there friend\n"
	p, err := testNormalizer().Normalize("d.txt", text, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCloneName, p.CloneName)
	assert.Equal(t, "discord", p.Formatter)
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unrecognised", "hello\nthis is not a chat log\n"},
		{"only clone speaks", "CloneNameTag: Anna\n01.05.22, 14:31 - Anna: talking to myself again\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testNormalizer().Normalize("bad.txt", tt.text, "")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.ParseFailure))
		})
	}
}

type panickyFormatter struct{}

func (panickyFormatter) Name() string { return "panicky" }
func (panickyFormatter) Detect(string) bool { return true }
func (panickyFormatter) ParseChat(string) []RawMessage { panic("boom") }

func TestNormalize_RecoversFormatterPanic(t *testing.T) {
	n := NewNormalizer(NewRegistry(panickyFormatter{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := n.Normalize("x.txt", "anything", "Anna")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ParseFailure))
}

func TestRegistry_DetectOrder(t *testing.T) {
	r := NewRegistry(panickyFormatter{}, NewDiscord())
	got := r.Detect("[12/03/2024 14:05] alice\nhello")
	require.Len(t, got, 2)
	assert.Equal(t, "panicky", got[0].Name())
	assert.Len(t, r.All(), 2)

	r.Register(NewWhatsApp())
	assert.Len(t, r.All(), 3)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 2, CountLines("short\n  padded line  \n\n12345\nanother line"))
}

func TestExtractCloneName(t *testing.T) {
	name, ok := ExtractCloneName("foo\nCloneNameTag:  Max Power \nbar")
	assert.True(t, ok)
	assert.Equal(t, "Max Power", name)

	_, ok = ExtractCloneName("no tag here")
	assert.False(t, ok)
}
