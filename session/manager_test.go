package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

// countingAllocator records every acquire and release so tests can check the
// one-live-handle-per-session rule.
type countingAllocator struct {
	next     int
	live     map[surface.Handle]string
	acquired int
	released map[surface.Handle]int
	bad      []string
}

func newCountingAllocator() *countingAllocator {
	return &countingAllocator{
		live:     make(map[surface.Handle]string),
		released: make(map[surface.Handle]int),
	}
}

func (a *countingAllocator) Acquire(content string) surface.Handle {
	a.next++
	a.acquired++
	h := surface.Handle(fmt.Sprintf("h%d", a.next))
	a.live[h] = content
	return h
}

func (a *countingAllocator) Release(h surface.Handle) {
	a.released[h]++
	if _, ok := a.live[h]; !ok {
		a.bad = append(a.bad, string(h))
		return
	}
	delete(a.live, h)
}

func rec(id, title string) *game.Record {
	return &game.Record{ID: id, Title: title, Content: "<html>" + title + "</html>"}
}

func TestOpenGameUniqueIDsAndCount(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	snake := rec("g1", "Snake")

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		s := m.OpenGame(snake)
		require.False(t, seen[s.ID], "duplicate session id %s", s.ID)
		seen[s.ID] = true
		require.Equal(t, s.ID, m.ActiveID())
	}
	require.Equal(t, 10, m.Len())
	require.Len(t, alloc.live, 10)
}

func TestInitialRecordOpensOnce(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, rec("g1", "Snake"))
	require.Equal(t, 1, m.Len())
	require.Equal(t, 1, alloc.acquired)
	active, ok := m.Active()
	require.True(t, ok)
	require.Equal(t, "Snake", active.Game.Title)
	require.Equal(t, 0, active.Generation)
}

func TestEmptyManager(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	require.Equal(t, 0, m.Len())
	require.Equal(t, "", m.ActiveID())
	require.False(t, m.Immersive())
	_, ok := m.Active()
	require.False(t, ok)
	require.Equal(t, Session{}, m.OpenGame(nil))
	require.Equal(t, 0, m.Len())
}

func TestCloseActiveFallsBackToPrevious(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	a := m.OpenGame(rec("a", "A"))
	b := m.OpenGame(rec("b", "B"))
	c := m.OpenGame(rec("c", "C"))
	require.Equal(t, c.ID, m.ActiveID())

	m.CloseSession(c.ID)
	require.Equal(t, b.ID, m.ActiveID())

	m.SetActive(a.ID)
	m.CloseSession(a.ID)
	require.Equal(t, b.ID, m.ActiveID(), "new active is the last remaining tab")

	m.CloseSession(b.ID)
	require.Equal(t, "", m.ActiveID())
	require.Equal(t, 0, m.Len())
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	a := m.OpenGame(rec("a", "A"))
	b := m.OpenGame(rec("b", "B"))
	m.CloseSession(a.ID)
	require.Equal(t, b.ID, m.ActiveID())
}

func TestCloseIsIdempotent(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	a := m.OpenGame(rec("a", "A"))
	m.OpenGame(rec("b", "B"))

	m.CloseSession(a.ID)
	require.NotPanics(t, func() { m.CloseSession(a.ID) })
	require.Equal(t, 1, m.Len())
	require.Equal(t, 1, alloc.released[a.Surface])
	require.Empty(t, alloc.bad)

	m.CloseSession("unknown")
	m.CloseSession("")
	require.Equal(t, 1, m.Len())
}

func TestRestartOnlyTouchesTarget(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	a := m.OpenGame(rec("a", "A"))
	b := m.OpenGame(rec("b", "B"))
	oldSurface := a.Surface

	m.RestartSession(a.ID)

	gotA, _ := m.Session(a.ID)
	gotB, _ := m.Session(b.ID)
	require.Equal(t, 1, gotA.Generation)
	require.Equal(t, 0, gotB.Generation)
	require.Equal(t, b.ID, m.ActiveID(), "restart must not change focus")
	require.NotEqual(t, oldSurface, gotA.Surface)
	require.Equal(t, b.Surface, gotB.Surface)

	// Release-before-replace: the old handle is gone, one live handle per session.
	require.Equal(t, 1, alloc.released[oldSurface])
	require.Len(t, alloc.live, 2)
	require.Equal(t, "<html>A</html>", alloc.live[gotA.Surface])

	m.RestartSession("unknown")
	require.Len(t, alloc.live, 2)
}

func TestSetActiveUnknownIsNoop(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	a := m.OpenGame(rec("a", "A"))
	b := m.OpenGame(rec("b", "B"))

	m.SetActive("dangling")
	require.Equal(t, b.ID, m.ActiveID())

	m.SetActive(a.ID)
	require.Equal(t, a.ID, m.ActiveID())
}

func TestToggleImmersive(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	require.True(t, m.ToggleImmersive())
	require.True(t, m.Immersive())
	require.False(t, m.ToggleImmersive())
}

func TestTeardownReleasesEverything(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	a := m.OpenGame(rec("a", "A"))
	m.OpenGame(rec("b", "B"))
	m.RestartSession(a.ID)
	m.RestartSession(a.ID)

	m.Teardown()
	require.Empty(t, alloc.live)
	require.Empty(t, alloc.bad)
	require.Equal(t, alloc.acquired, len(alloc.released))
	for h, n := range alloc.released {
		require.Equal(t, 1, n, "handle %s released %d times", h, n)
	}

	require.NotPanics(t, m.Teardown)
	require.Empty(t, alloc.bad)
	require.Equal(t, 0, m.Len())
}

func TestTeardownWithNoSessions(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	require.NotPanics(t, m.Teardown)
	require.Empty(t, alloc.released)
}

func TestAcquireReleaseBalancedPerSession(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, m.OpenGame(rec(fmt.Sprint(i), fmt.Sprint("G", i))).ID)
	}
	m.RestartSession(ids[1])
	m.CloseSession(ids[0])
	m.CloseSession(ids[1])
	m.CloseSession(ids[3])
	m.Teardown()

	require.Empty(t, alloc.live)
	require.Empty(t, alloc.bad)
	require.Equal(t, alloc.acquired, len(alloc.released))
}

func TestSnakePongScenario(t *testing.T) {
	alloc := newCountingAllocator()
	m := New(alloc, nil)

	snake := m.OpenGame(&game.Record{ID: "snake", Title: "Snake", Content: "<html>...</html>"})
	require.Equal(t, 1, m.Len())
	require.Equal(t, snake.ID, m.ActiveID())

	pong := m.OpenGame(&game.Record{ID: "pong", Title: "Pong", Content: "<html>...</html>"})
	require.Equal(t, 2, m.Len())
	require.Equal(t, pong.ID, m.ActiveID())

	m.CloseSession(snake.ID)
	require.Equal(t, 1, m.Len())
	require.Equal(t, pong.ID, m.ActiveID())

	m.RestartSession(pong.ID)
	got, ok := m.Session(pong.ID)
	require.True(t, ok)
	require.Equal(t, 1, got.Generation)
	_, ok = m.Session(snake.ID)
	require.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	m := New(newCountingAllocator(), nil)
	a := m.OpenGame(&game.Record{ID: "a", Title: "A", ImageRef: "http://img/a.png", Content: "<html/>"})
	m.OpenGame(rec("b", "B"))
	m.SetActive(a.ID)
	m.ToggleImmersive()

	snap := m.Snapshot("ws")
	require.Equal(t, "ws", snap.WorkspaceID)
	require.True(t, snap.Immersive)
	require.Len(t, snap.Sessions, 2)
	require.Equal(t, "A", snap.Sessions[0].Title)
	require.Equal(t, "http://img/a.png", snap.Sessions[0].ImageURL)
	require.Equal(t, surface.Path(a.Surface), snap.Sessions[0].SurfaceURL)

	active, ok := snap.Active()
	require.True(t, ok)
	require.Equal(t, a.ID, active.ID)
}
