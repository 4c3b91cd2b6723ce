package session

import (
	"github.com/wricardo/heat-race/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// persistedVersion is bumped when PersistedSessionData changes shape
const persistedVersion = 1

// PersistedSessionData represents the JSON structure for persisted sessions.
// The race itself is not stored: it is rebuilt from the seed and action log.
type PersistedSessionData struct {
	Version int `json:"version"`
	service.SessionRecord
}
