// Package sqlite provides a SQLite-backed game store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store persists game records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite game store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func applyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
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
		CreatedAt:   fromMillis(toMillis(s.now())),
		OwnerRef:    strings.TrimSpace(rec.OwnerRef),
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO games (id, title, description, html_content, image_url, created_at, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.Content, r.ImageRef, toMillis(r.CreatedAt), r.OwnerRef,
	)
	if err != nil {
		return game.Record{}, game.NewStoreError("create game", err)
	}
	return r, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (game.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, description, html_content, image_url, created_at, user_id
		 FROM games WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Record{}, game.ErrNotFound
	}
	if err != nil {
		return game.Record{}, game.NewStoreError("get game "+id, err)
	}
	return r, nil
}

func (s *Store) ListGames(ctx context.Context) ([]game.Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, title, description, '' AS html_content, image_url, created_at, user_id
		 FROM games ORDER BY created_at DESC, id`)
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
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
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
	var (
		r       game.Record
		created int64
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Content, &r.ImageRef, &created, &r.OwnerRef); err != nil {
		return game.Record{}, err
	}
	r.CreatedAt = fromMillis(created)
	return r, nil
}
