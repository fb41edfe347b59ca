package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MeetingRegistry tracks scheduled meeting ids. It is volatile: meetings
// reset on restart, like the rest of the in-memory state.
type MeetingRegistry struct {
	mu       sync.RWMutex
	meetings map[string]time.Time
}

// NewMeetingRegistry creates an empty registry.
func NewMeetingRegistry() *MeetingRegistry {
	return &MeetingRegistry{
		meetings: make(map[string]time.Time),
	}
}

// NewMeetingID generates a short shareable meeting token.
func NewMeetingID() string {
	return uuid.New().String()[:8]
}

// Schedule records a meeting id as joinable.
func (m *MeetingRegistry) Schedule(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetings[id] = time.Now()
}

// Exists reports whether the meeting id has been scheduled.
func (m *MeetingRegistry) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.meetings[id]
	return ok
}
