package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestCreateGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateGame(ctx, game.NewRecord{
		Title:       "Snake",
		Description: "eat apples",
		Content:     "<html>snake</html>",
		ImageRef:    "http://localhost:8081/media/games/x.png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := s.GetGame(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	require.NoError(t, s.DeleteGame(ctx, rec.ID))
	_, err = s.GetGame(ctx, rec.ID)
	require.ErrorIs(t, err, game.ErrNotFound)
	require.ErrorIs(t, s.DeleteGame(ctx, rec.ID), game.ErrNotFound)
}

func TestCreateDuplicateIsStoreError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateGame(ctx, game.NewRecord{ID: "dup", Title: "A", Content: "<html/>"})
	require.NoError(t, err)
	_, err = s.CreateGame(ctx, game.NewRecord{ID: "dup", Title: "B", Content: "<html/>"})
	require.True(t, game.IsStoreError(err), "got %v", err)
}

func TestCreateValidates(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateGame(context.Background(), game.NewRecord{Title: "no content"})
	require.True(t, game.IsValidation(err))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		_, err := s.CreateGame(ctx, game.NewRecord{Title: title, Content: "<html/>"})
		require.NoError(t, err)
	}
	list, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "third", list[0].Title)
	require.Equal(t, "first", list[2].Title)
	require.Empty(t, list[0].Content)

	got, err := s.GetGame(ctx, list[0].ID)
	require.NoError(t, err)
	require.Equal(t, "<html/>", got.Content)
}

func TestReadFailuresAreStoreErrors(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.GetGame(context.Background(), "any")
	require.True(t, game.IsStoreError(err), "got %v", err)
	_, err = s.ListGames(context.Background())
	require.True(t, game.IsStoreError(err), "got %v", err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	s1, err := Open(path)
	require.NoError(t, err)
	rec, err := s1.CreateGame(context.Background(), game.NewRecord{Title: "Keep", Content: "<html/>"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.GetGame(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Keep", got.Title)
}
