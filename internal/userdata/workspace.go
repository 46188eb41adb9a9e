// Package userdata manages the per-user upload directory that holds chat
// logs until they are submitted for fine-tuning.
package userdata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neooriginal/FSCS/internal/chatlog"
)

const base64Marker = ";base64,"

// Upload is one file received from a client. Data is either plain text or
// a data URL carrying base64 content.
type Upload struct {
	Name      string
	Data      string
	CloneName string
}

type FileInfo struct {
	Name              string    `json:"name"`
	Size              int64     `json:"size"`
	Modified          time.Time `json:"modified"`
	Lines             int       `json:"lines"`
	ExistingCloneName string    `json:"existingCloneName"`
}

type Workspace struct {
	baseDir     string
	inputSubdir string
}

func NewWorkspace(baseDir, inputSubdir string) *Workspace {
	return &Workspace{baseDir: baseDir, inputSubdir: inputSubdir}
}

func (w *Workspace) UserDir(userKey string) string {
	return filepath.Join(w.baseDir, userKey)
}

func (w *Workspace) InputDir(userKey string) string {
	return filepath.Join(w.baseDir, userKey, w.inputSubdir)
}

// Save decodes and writes an upload, returning the stored file name. A
// CloneNameTag line is prepended when a clone name is given and the text
// has none.
func (w *Workspace) Save(userKey string, up Upload) (string, error) {
	content, err := DecodeContent(up.Data)
	if err != nil {
		return "", err
	}

	name := sanitizeName(up.Name)
	if up.CloneName != "" && !strings.Contains(content, chatlog.CloneNameTag) {
		content = fmt.Sprintf("%s %s\n%s", chatlog.CloneNameTag, up.CloneName, content)
	}

	dir := w.InputDir(userKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create input dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// DecodeContent returns data as text, base64-decoding data URLs.
func DecodeContent(data string) (string, error) {
	idx := strings.Index(data, base64Marker)
	if idx < 0 {
		return data, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data[idx+len(base64Marker):]))
	if err != nil {
		return "", fmt.Errorf("decode base64 upload: %w", err)
	}
	return string(raw), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload_" + uuid.NewString()
	}
	if !strings.HasSuffix(strings.ToLower(name), ".txt") {
		name += ".txt"
	}
	return name
}

// Names lists the .txt files in the user's input directory in name order.
func (w *Workspace) Names(userKey string) ([]string, error) {
	entries, err := os.ReadDir(w.InputDir(userKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *Workspace) Read(userKey, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(w.InputDir(userKey), filepath.Base(name)))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// Files returns preview information for every uploaded file. Unreadable
// files are left out.
func (w *Workspace) Files(userKey string) ([]FileInfo, error) {
	names, err := w.Names(userKey)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(names))
	for _, name := range names {
		path := filepath.Join(w.InputDir(userKey), name)
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(data)
		clone, _ := chatlog.ExtractCloneName(text)
		files = append(files, FileInfo{
			Name:              name,
			Size:              st.Size(),
			Modified:          st.ModTime(),
			Lines:             nonEmptyLines(text),
			ExistingCloneName: clone,
		})
	}
	return files, nil
}

func nonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func (w *Workspace) Remove(userKey, name string) error {
	err := os.Remove(filepath.Join(w.InputDir(userKey), filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// RemoveInput deletes the user's input directory and everything in it.
func (w *Workspace) RemoveInput(userKey string) error {
	if err := os.RemoveAll(w.InputDir(userKey)); err != nil {
		return fmt.Errorf("remove input dir: %w", err)
	}
	return nil
}

// DeleteAll removes every file stored for the user and reports whether
// anything existed.
func (w *Workspace) DeleteAll(userKey string) (bool, error) {
	dir := w.UserDir(userKey)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove user dir: %w", err)
	}
	return true, nil
}
