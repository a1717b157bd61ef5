package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/session"
)

const (
	eventWriteWait = 10 * time.Second
	eventPingEvery = 30 * time.Second
)

type gameRequest struct {
	GameID string `json:"game_id"`
}

// workspaceEvent is one frame on the events socket.
type workspaceEvent struct {
	Type      string           `json:"type"`
	Data      session.Snapshot `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

// handleCreateWorkspace starts a workspace, opening {game_id} when given.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, "create workspace", err)
		return
	}
	var initial *game.Record
	if id := strings.TrimSpace(req.GameID); id != "" {
		rec, err := s.games.GetGame(r.Context(), id)
		if err != nil {
			writeFailure(w, "create workspace", err)
			return
		}
		initial = &rec
	}
	snap, err := s.workspaces.Create(initial)
	if err != nil {
		writeFailure(w, "create workspace", err)
		return
	}
	log.Printf("workspace: created workspace_id=%s sessions=%d", snap.WorkspaceID, len(snap.Sessions))
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	snap, err := s.workspaces.Snapshot(chi.URLParam(r, "wid"))
	if err != nil {
		writeFailure(w, "get workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCloseWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Close(chi.URLParam(r, "wid")); err != nil {
		writeFailure(w, "close workspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenSession opens {game_id} as a new focused tab. The record is
// fetched before the workspace lock is taken.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, "open session", err)
		return
	}
	id := strings.TrimSpace(req.GameID)
	if id == "" {
		writeFailure(w, "open session", &game.ValidationError{Field: "game_id", Msg: "game id is required"})
		return
	}
	rec, err := s.games.GetGame(r.Context(), id)
	if err != nil {
		writeFailure(w, "open session", err)
		return
	}
	snap, err := s.workspaces.Open(chi.URLParam(r, "wid"), &rec)
	if err != nil {
		writeFailure(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.mutate(w, r, "close session", func(m *session.Manager) { m.CloseSession(sid) })
}

func (s *Server) handleRestartSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.mutate(w, r, "restart session", func(m *session.Manager) { m.RestartSession(sid) })
}

func (s *Server) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.mutate(w, r, "activate session", func(m *session.Manager) { m.SetActive(sid) })
}

func (s *Server) handleToggleImmersive(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "toggle immersive", func(m *session.Manager) { m.ToggleImmersive() })
}

// mutate applies fn to the workspace in the URL and replies with the new
// snapshot. Unknown session ids leave the workspace unchanged.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(m *session.Manager)) {
	snap, err := s.workspaces.Do(chi.URLParam(r, "wid"), fn)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleWorkspaceEvents streams a snapshot on connect and after every change.
// The socket closes when the workspace does.
func (s *Server) handleWorkspaceEvents(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "wid")
	updates, cancel, err := s.workspaces.Subscribe(wid)
	if err != nil {
		writeFailure(w, "workspace events", err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("workspace: workspace_id=%s upgrade: %v", wid, err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and pong frames are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "workspace closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(eventWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(workspaceEvent{Type: "snapshot", Data: snap, Timestamp: time.Now().UnixMilli()}); err != nil {
				log.Printf("workspace: workspace_id=%s write event: %v", wid, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		}
	}
}
