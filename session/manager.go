// Package session manages the tabs a visitor has open: which games are
// running, which tab has focus, and whether the player is immersive.
//
// A Manager is not safe for concurrent use; Workspaces serializes access.
package session

import (
	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

// Session is one open instance of a game.
type Session struct {
	ID   string
	Game *game.Record
	// Generation increases on every restart so clients re-create the frame
	// instead of reloading it in place.
	Generation int
	Surface    surface.Handle
}

// Manager owns an ordered set of sessions. Invariants:
//   - exactly one live surface handle per open session;
//   - activeID is empty or names a session in the collection.
type Manager struct {
	surfaces  surface.Allocator
	sessions  []*Session
	activeID  string
	immersive bool
}

// New creates a manager. When initial is non-nil it is opened straight away.
func New(surfaces surface.Allocator, initial *game.Record) *Manager {
	m := &Manager{surfaces: surfaces}
	if initial != nil && len(m.sessions) == 0 {
		m.OpenGame(initial)
	}
	return m
}

// OpenGame appends a session for rec, focuses it and returns a copy of it.
// A nil record opens nothing.
func (m *Manager) OpenGame(rec *game.Record) Session {
	if rec == nil {
		return Session{}
	}
	s := &Session{
		ID:      "tab-" + rec.ID + "-" + uuid.NewString(),
		Game:    rec,
		Surface: m.surfaces.Acquire(rec.Content),
	}
	m.sessions = append(m.sessions, s)
	m.activeID = s.ID
	return *s
}

// CloseSession releases and removes id. If it had focus, focus moves to the
// last remaining tab. Unknown ids are ignored.
func (m *Manager) CloseSession(id string) {
	idx := m.index(id)
	if idx < 0 {
		return
	}
	m.surfaces.Release(m.sessions[idx].Surface)
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	if m.activeID != id {
		return
	}
	if n := len(m.sessions); n > 0 {
		m.activeID = m.sessions[n-1].ID
	} else {
		m.activeID = ""
	}
}

// RestartSession swaps id's surface for a fresh one and bumps its generation.
// The old handle is released before the new one is acquired.
func (m *Manager) RestartSession(id string) {
	idx := m.index(id)
	if idx < 0 {
		return
	}
	s := m.sessions[idx]
	m.surfaces.Release(s.Surface)
	s.Surface = m.surfaces.Acquire(s.Game.Content)
	s.Generation++
}

// SetActive focuses id if it is open.
func (m *Manager) SetActive(id string) {
	if m.index(id) >= 0 {
		m.activeID = id
	}
}

// ToggleImmersive flips immersive mode and returns the new value.
func (m *Manager) ToggleImmersive() bool {
	m.immersive = !m.immersive
	return m.immersive
}

// Teardown releases every remaining surface. Safe to call more than once.
func (m *Manager) Teardown() {
	for _, s := range m.sessions {
		m.surfaces.Release(s.Surface)
	}
	m.sessions = nil
	m.activeID = ""
}

// Sessions returns copies of the open sessions in tab order.
func (m *Manager) Sessions() []Session {
	out := make([]Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = *s
	}
	return out
}

// Session returns a copy of the session with id.
func (m *Manager) Session(id string) (Session, bool) {
	idx := m.index(id)
	if idx < 0 {
		return Session{}, false
	}
	return *m.sessions[idx], true
}

// Active returns the focused session, if any.
func (m *Manager) Active() (Session, bool) {
	if m.activeID == "" {
		return Session{}, false
	}
	return m.Session(m.activeID)
}

func (m *Manager) ActiveID() string { return m.activeID }

func (m *Manager) Immersive() bool { return m.immersive }

func (m *Manager) Len() int { return len(m.sessions) }

func (m *Manager) index(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range m.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}
