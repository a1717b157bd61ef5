// Package filestore keeps game records in memory and persists them to
// games.json under a data directory.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"

	"github.com/google/uuid"
)

// Store implements game.Gateway on a JSON file.
type Store struct {
	mu      sync.RWMutex
	games   map[string]game.Record
	dataDir string
	now     func() time.Time
}

func NewStore(dataDir string) *Store {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Store{
		games:   make(map[string]game.Record),
		dataDir: dataDir,
		now:     time.Now,
	}
	s.load()
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, "games.json")
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("filestore: read %s: %v", s.path(), err)
		}
		return
	}
	var list []game.Record
	if err := json.Unmarshal(data, &list); err != nil {
		log.Printf("filestore: parse %s: %v", s.path(), err)
		return
	}
	for _, r := range list {
		if r.ID != "" {
			s.games[r.ID] = r
		}
	}
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *Store) saveLocked() error {
	list := make([]game.Record, 0, len(s.games))
	for _, r := range s.games {
		list = append(list, r)
	}
	game.SortNewestFirst(list)
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

func (s *Store) CreateGame(ctx context.Context, rec game.NewRecord) (game.Record, error) {
	if err := ctx.Err(); err != nil {
		return game.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return game.Record{}, err
	}
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = uuid.NewString()
	}
	r := game.Record{
		ID:          id,
		Title:       strings.TrimSpace(rec.Title),
		Description: strings.TrimSpace(rec.Description),
		Content:     rec.Content,
		ImageRef:    strings.TrimSpace(rec.ImageRef),
		CreatedAt:   s.now().UTC(),
		OwnerRef:    strings.TrimSpace(rec.OwnerRef),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[id]; exists {
		return game.Record{}, game.NewStoreError("create game", fmt.Errorf("duplicate id %s", id))
	}
	s.games[id] = r
	if err := s.saveLocked(); err != nil {
		delete(s.games, id)
		return game.Record{}, game.NewStoreError("create game", err)
	}
	return r, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (game.Record, error) {
	if err := ctx.Err(); err != nil {
		return game.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.games[id]
	if !ok {
		return game.Record{}, game.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListGames(ctx context.Context) ([]game.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	list := make([]game.Record, 0, len(s.games))
	for _, r := range s.games {
		list = append(list, r.Summary())
	}
	s.mu.RUnlock()
	game.SortNewestFirst(list)
	return list, nil
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.games[id]
	if !ok {
		return game.ErrNotFound
	}
	delete(s.games, id)
	if err := s.saveLocked(); err != nil {
		s.games[id] = r
		return game.NewStoreError("delete game", err)
	}
	return nil
}
