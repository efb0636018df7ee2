package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentor/agentor/pkg/errors"
	"github.com/google/uuid"
)

// Store is the durable keyed session record interface the dispatcher's
// callers consume (spec §3 "Session Store Interface"). Concurrent
// writes to the same key are undefined; callers must route a session
// to a single connection at a time (spec §5).
type Store interface {
	Load(id uuid.UUID) (*Session, error)
	Save(s *Session) error
	Delete(id uuid.UUID) error
}

// FileStore persists sessions as pretty-printed JSON under
// dir/sessions/<uuid>.json, read whole and rewritten whole on each
// update (spec §6).
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a FileStore rooted at dir/sessions, creating
// the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	sessionsDir := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindIO, "create sessions dir", err)
	}
	return &FileStore{dir: sessionsDir}, nil
}

func (f *FileStore) path(id uuid.UUID) string {
	return filepath.Join(f.dir, id.String()+".json")
}

// Load reads and unmarshals the session file for id.
func (f *FileStore) Load(id uuid.UUID) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.KindSession, fmt.Sprintf("no session %s", id)).WithUserMessage("session not found")
		}
		return nil, errors.Wrap(errors.KindIO, "read session file", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.KindSerialization, "decode session", err)
	}
	return &s, nil
}

// Save pretty-prints s and rewrites its file whole.
func (f *FileStore) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(errors.KindSerialization, "encode session", err)
	}
	if err := os.WriteFile(f.path(s.ID), data, 0o644); err != nil {
		return errors.Wrap(errors.KindIO, "write session file", err)
	}
	return nil
}

// Delete removes the session file for id. Deleting a missing session
// is not an error.
func (f *FileStore) Delete(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindIO, "delete session file", err)
	}
	return nil
}
