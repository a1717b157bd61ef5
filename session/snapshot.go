package session

import (
	"time"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

// Snapshot is the client-facing view of a workspace.
type Snapshot struct {
	WorkspaceID string        `json:"workspace_id"`
	Sessions    []SessionView `json:"sessions"`
	ActiveID    string        `json:"active_id,omitempty"`
	Immersive   bool          `json:"immersive"`
}

// SessionView describes one tab. SurfaceURL changes on every restart.
type SessionView struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Generation  int       `json:"generation"`
	SurfaceURL  string    `json:"surface_url"`
	Active      bool      `json:"active"`
}

// Snapshot captures the manager's state for workspace id.
func (m *Manager) Snapshot(id string) Snapshot {
	snap := Snapshot{
		WorkspaceID: id,
		Sessions:    make([]SessionView, 0, len(m.sessions)),
		ActiveID:    m.activeID,
		Immersive:   m.immersive,
	}
	for _, s := range m.sessions {
		snap.Sessions = append(snap.Sessions, SessionView{
			ID:          s.ID,
			GameID:      s.Game.ID,
			Title:       s.Game.Title,
			Description: s.Game.Description,
			ImageURL:    s.Game.ImageRef,
			CreatedAt:   s.Game.CreatedAt,
			Generation:  s.Generation,
			SurfaceURL:  surface.Path(s.Surface),
			Active:      s.ID == m.activeID,
		})
	}
	return snap
}

// Active returns the focused tab of the snapshot.
func (s Snapshot) Active() (SessionView, bool) {
	for _, v := range s.Sessions {
		if v.Active {
			return v, true
		}
	}
	return SessionView{}, false
}
