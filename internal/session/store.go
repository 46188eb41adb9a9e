// Package session keeps per-credential chat histories and fine-tuning job
// metadata for the lifetime of the process.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/neooriginal/FSCS/internal/hyperparams"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Job struct {
	ID             string               `json:"id"`
	Status         string               `json:"status"`
	Settings       hyperparams.Settings `json:"fineTuneSettings"`
	ModelName      string               `json:"modelName"`
	FineTunedModel string               `json:"fineTunedModel,omitempty"`
	NotifyThread   string               `json:"-"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// SessionStore is keyed by a user key derived from the credential, never by
// the credential itself.
type SessionStore interface {
	History(userKey, model string) []Message
	Append(userKey, model string, msgs ...Message)
	StoreJob(userKey string, job Job)
	Job(userKey, id string) (Job, bool)
	Jobs(userKey string) []Job
	UpdateJob(userKey, id string, fn func(*Job)) bool
	Delete(userKey string) bool
}

// HashCredential returns the hex SHA-256 of a credential.
func HashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// UserKey is the partition key for a credential.
func UserKey(credential string) string {
	return HashCredential(credential)[:16]
}

// UserID is the short identifier safe to return to clients and log.
func UserID(credential string) string {
	return HashCredential(credential)[:8]
}

// UserIDForKey derives the short identifier from a partition key.
func UserIDForKey(userKey string) string {
	if len(userKey) < 8 {
		return userKey
	}
	return userKey[:8]
}

type userData struct {
	histories map[string][]Message
	jobs      map[string]Job
}

// MemoryStore partitions state by user key. Entries are created on first
// access and never expire.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userData
	now   func() time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userData), now: time.Now}
}

func (s *MemoryStore) user(key string) *userData {
	u, ok := s.users[key]
	if !ok {
		u = &userData{histories: make(map[string][]Message), jobs: make(map[string]Job)}
		s.users[key] = u
	}
	return u
}

func (s *MemoryStore) History(userKey, model string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.user(userKey).histories[model]
	out := make([]Message, len(h))
	copy(out, h)
	return out
}

func (s *MemoryStore) Append(userKey, model string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userKey)
	u.histories[model] = append(u.histories[model], msgs...)
}

func (s *MemoryStore) StoreJob(userKey string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}
	job.UpdatedAt = job.CreatedAt
	s.user(userKey).jobs[job.ID] = job
}

func (s *MemoryStore) Job(userKey, id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.user(userKey).jobs[id]
	return j, ok
}

// Jobs returns the user's jobs, newest first.
func (s *MemoryStore) Jobs(userKey string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]Job, 0, len(s.user(userKey).jobs))
	for _, j := range s.user(userKey).jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs
}

// UpdateJob applies fn to a known job. It reports false for unknown ids.
func (s *MemoryStore) UpdateJob(userKey, id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userKey)
	j, ok := u.jobs[id]
	if !ok {
		return false
	}
	fn(&j)
	j.ID = id
	j.UpdatedAt = s.now()
	u.jobs[id] = j
	return true
}

// Delete drops all state for the user and reports whether any existed.
func (s *MemoryStore) Delete(userKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userKey]
	delete(s.users, userKey)
	return ok
}
