package userdata

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_PlainAndBase64(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")

	name, err := w.Save("u1", Upload{Name: "chat.txt", Data: "line one\nline two\n"})
	require.NoError(t, err)
	assert.Equal(t, "chat.txt", name)

	encoded := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("decoded text\n"))
	name2, err := w.Save("u1", Upload{Data: encoded})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name2, "upload_"))
	assert.True(t, strings.HasSuffix(name2, ".txt"))

	got, err := w.Read("u1", name2)
	require.NoError(t, err)
	assert.Equal(t, "decoded text\n", got)
}

func TestSave_InvalidBase64(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")
	_, err := w.Save("u1", Upload{Name: "x.txt", Data: "data:text/plain;base64,@@@"})
	assert.Error(t, err)
}

func TestSave_PrependsCloneTag(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")

	_, err := w.Save("u1", Upload{Name: "a.txt", Data: "hello there\n", CloneName: "Anna"})
	require.NoError(t, err)
	got, _ := w.Read("u1", "a.txt")
	assert.Equal(t, "CloneNameTag: Anna\nhello there\n", got)

	_, err = w.Save("u1", Upload{Name: "b.txt", Data: "CloneNameTag: Ben\nhi\n", CloneName: "Anna"})
	require.NoError(t, err)
	got, _ = w.Read("u1", "b.txt")
	assert.Equal(t, "CloneNameTag: Ben\nhi\n", got)
}

func TestSave_PathTraversal(t *testing.T) {
	base := t.TempDir()
	w := NewWorkspace(base, "inputData")

	name, err := w.Save("u1", Upload{Name: "../../escape", Data: "x"})
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", name)
	_, err = os.Stat(filepath.Join(w.InputDir("u1"), "escape.txt"))
	assert.NoError(t, err)
}

func TestFiles_Preview(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")
	_, err := w.Save("u1", Upload{Name: "a.txt", Data: "one\n\ntwo\nthree\n", CloneName: "Anna"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(w.InputDir("u1"), "ignored.json"), []byte("{}"), 0o644))

	files, err := w.Files("u1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, 4, files[0].Lines)
	assert.Equal(t, "Anna", files[0].ExistingCloneName)
	assert.Positive(t, files[0].Size)
}

func TestFiles_MissingDir(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")
	files, err := w.Files("nobody")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRemoveAndDeleteAll(t *testing.T) {
	w := NewWorkspace(t.TempDir(), "inputData")
	_, err := w.Save("u1", Upload{Name: "a.txt", Data: "x"})
	require.NoError(t, err)
	_, err = w.Save("u1", Upload{Name: "b.txt", Data: "y"})
	require.NoError(t, err)

	require.NoError(t, w.Remove("u1", "a.txt"))
	require.NoError(t, w.Remove("u1", "a.txt"))
	names, _ := w.Names("u1")
	assert.Equal(t, []string{"b.txt"}, names)

	existed, err := w.DeleteAll("u1")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = w.DeleteAll("u1")
	require.NoError(t, err)
	assert.False(t, existed)
}
