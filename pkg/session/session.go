// Package session implements the durable, keyed session records
// consumed by the dispatcher's callers (spec §3, §6, component C10):
// file-based JSON, read whole and rewritten whole on each update.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Message is one turn in a session's conversation history. Content is
// kept opaque (a JSON-serializable value) since the core does not
// interpret conversation semantics (spec §1: "The core consumes only
// the shape of a tool call").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a persistent conversation context keyed by UUID.
// UpdatedAt is monotonic: every Store.Save call that mutates a session
// must advance it.
type Session struct {
	ID           uuid.UUID      `json:"id"`
	Messages     []Message      `json:"messages"`
	ActiveSkills []string       `json:"active_skills"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata"`
}

// New creates a Session with a fresh UUID and CreatedAt/UpdatedAt set
// to now.
func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// AppendMessage appends a message and advances UpdatedAt.
func (s *Session) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now().UTC()
}
