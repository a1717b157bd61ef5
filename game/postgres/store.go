// Package postgres stores game records in a Postgres games table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
  id           TEXT PRIMARY KEY,
  title        TEXT NOT NULL,
  description  TEXT,
  html_content TEXT NOT NULL,
  image_url    TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  user_id      TEXT
);
CREATE INDEX IF NOT EXISTS games_created_at_idx ON games (created_at DESC);
`

// Store implements game.Gateway on database/sql with the pgx driver.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the games table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure games schema: %w", err)
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, rec game.NewRecord) (game.Record, error) {
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
		OwnerRef:    strings.TrimSpace(rec.OwnerRef),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO games (id, title, description, html_content, image_url, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, r.ID, r.Title, nullableString(r.Description), r.Content, nullableString(r.ImageRef), nullableString(r.OwnerRef)).Scan(&r.CreatedAt)
	if err != nil {
		return game.Record{}, game.NewStoreError("create game", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (game.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(description, ''), html_content, COALESCE(image_url, ''), created_at, COALESCE(user_id, '')
		FROM games WHERE id = $1
	`, id)
	r, err := scanRecord(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return game.Record{}, game.ErrNotFound
	case err != nil:
		return game.Record{}, game.NewStoreError("get game "+id, err)
	}
	return r, nil
}

func (s *Store) ListGames(ctx context.Context) ([]game.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), '' AS html_content, COALESCE(image_url, ''), created_at, COALESCE(user_id, '')
		FROM games
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, game.NewStoreError("list games", err)
	}
	defer rows.Close()
	list := []game.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, game.NewStoreError("list games: scan row", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, game.NewStoreError("list games", err)
	}
	return list, nil
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return game.NewStoreError("delete game", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return game.NewStoreError("delete game", err)
	}
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (game.Record, error) {
	var r game.Record
	if err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Content, &r.ImageRef, &r.CreatedAt, &r.OwnerRef); err != nil {
		return game.Record{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
