package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

var (
	// ErrWorkspaceNotFound is returned for unknown or closed workspace ids.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrWorkspaceLimit is returned by Create when MaxWorkspaces are open.
	ErrWorkspaceLimit = errors.New("too many open workspaces")
	// ErrSessionLimit is returned by Open when the workspace is full.
	ErrSessionLimit = errors.New("too many open sessions in workspace")
)

// Limits bound what abandoned clients can hold. Zero values disable a limit.
type Limits struct {
	// IdleTTL closes workspaces nobody has touched or watched for this long.
	IdleTTL       time.Duration
	MaxWorkspaces int
	MaxSessions   int
}

type workspace struct {
	mgr      *Manager
	subs     map[chan Snapshot]struct{}
	lastSeen time.Time
}

// Workspaces holds one Manager per visitor workspace. Every operation runs
// under a single lock so each is atomic with respect to manager state.
type Workspaces struct {
	mu       sync.Mutex
	surfaces surface.Allocator
	limits   Limits
	items    map[string]*workspace
	now      func() time.Time
}

func NewWorkspaces(surfaces surface.Allocator, limits Limits) *Workspaces {
	return &Workspaces{
		surfaces: surfaces,
		limits:   limits,
		items:    make(map[string]*workspace),
		now:      time.Now,
	}
}

// Create starts a workspace, opening initial when non-nil.
func (w *Workspaces) Create(initial *game.Record) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.limits.MaxWorkspaces > 0 && len(w.items) >= w.limits.MaxWorkspaces {
		return Snapshot{}, ErrWorkspaceLimit
	}
	id := uuid.NewString()
	ws := &workspace{
		mgr:      New(w.surfaces, initial),
		subs:     make(map[chan Snapshot]struct{}),
		lastSeen: w.now(),
	}
	w.items[id] = ws
	return ws.mgr.Snapshot(id), nil
}

// Do runs fn against the workspace manager, notifies subscribers and returns
// the resulting snapshot.
func (w *Workspaces) Do(id string, fn func(m *Manager)) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[id]
	if !ok {
		return Snapshot{}, ErrWorkspaceNotFound
	}
	return w.applyLocked(id, ws, fn), nil
}

// Open adds rec as a new focused session, refusing once MaxSessions are open.
func (w *Workspaces) Open(id string, rec *game.Record) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[id]
	if !ok {
		return Snapshot{}, ErrWorkspaceNotFound
	}
	if w.limits.MaxSessions > 0 && len(ws.mgr.sessions) >= w.limits.MaxSessions {
		ws.lastSeen = w.now()
		return Snapshot{}, ErrSessionLimit
	}
	return w.applyLocked(id, ws, func(m *Manager) { m.OpenGame(rec) }), nil
}

func (w *Workspaces) applyLocked(id string, ws *workspace, fn func(m *Manager)) Snapshot {
	ws.lastSeen = w.now()
	fn(ws.mgr)
	snap := ws.mgr.Snapshot(id)
	for ch := range ws.subs {
		publish(ch, snap)
	}
	return snap
}

// Snapshot returns the current state of a workspace.
func (w *Workspaces) Snapshot(id string) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[id]
	if !ok {
		return Snapshot{}, ErrWorkspaceNotFound
	}
	ws.lastSeen = w.now()
	return ws.mgr.Snapshot(id), nil
}

// Close tears the workspace down and ends its subscriptions.
func (w *Workspaces) Close(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[id]
	if !ok {
		return ErrWorkspaceNotFound
	}
	w.closeLocked(id, ws)
	return nil
}

// CloseAll tears down every workspace; called on process shutdown.
func (w *Workspaces) CloseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.items)
	for id, ws := range w.items {
		w.closeLocked(id, ws)
	}
	if n > 0 {
		log.Printf("session: tore down %d workspace(s)", n)
	}
}

// Reap closes every workspace idle for longer than IdleTTL. A workspace with
// an open subscription is never idle; its clock restarts when the last
// subscriber leaves.
func (w *Workspaces) Reap() int {
	if w.limits.IdleTTL <= 0 {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-w.limits.IdleTTL)
	n := 0
	for id, ws := range w.items {
		if len(ws.subs) > 0 || !ws.lastSeen.Before(cutoff) {
			continue
		}
		log.Printf("session: reaped idle workspace workspace_id=%s sessions=%d", id, len(ws.mgr.sessions))
		w.closeLocked(id, ws)
		n++
	}
	return n
}

// RunReaper calls Reap periodically until ctx is done. It returns at once when
// IdleTTL is zero.
func (w *Workspaces) RunReaper(ctx context.Context) {
	if w.limits.IdleTTL <= 0 {
		return
	}
	every := w.limits.IdleTTL / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Reap()
		}
	}
}

func (w *Workspaces) closeLocked(id string, ws *workspace) {
	ws.mgr.Teardown()
	for ch := range ws.subs {
		close(ch)
	}
	ws.subs = nil
	delete(w.items, id)
}

// Len is the number of open workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Subscribe returns a channel that receives the current snapshot and then one
// per change. Slow readers only see the latest snapshot. The channel is closed
// when the workspace closes or cancel is called.
func (w *Workspaces) Subscribe(id string) (<-chan Snapshot, func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[id]
	if !ok {
		return nil, nil, ErrWorkspaceNotFound
	}
	ws.lastSeen = w.now()
	ch := make(chan Snapshot, 1)
	ch <- ws.mgr.Snapshot(id)
	ws.subs[ch] = struct{}{}
	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		cur, ok := w.items[id]
		if !ok || cur != ws {
			return
		}
		if _, ok := ws.subs[ch]; ok {
			delete(ws.subs, ch)
			close(ch)
			ws.lastSeen = w.now()
		}
	}
	return ch, cancel, nil
}

// publish replaces any unread snapshot with snap.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
