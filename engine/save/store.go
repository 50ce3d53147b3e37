package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nathoo/questchronicles/engine/errs"
	"github.com/nathoo/questchronicles/types"
)

// Store persists saves keyed by character name.
type Store interface {
	Put(ctx context.Context, c *types.Character, s Session) error
	Get(ctx context.Context, name string) (*SaveData, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// FileStore keeps one JSON file per character in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.Dir, FileName(name))
}

// Put writes the save through a temp file so a crash never leaves a
// truncated save behind.
func (s *FileStore) Put(_ context.Context, c *types.Character, sess Session) error {
	data, err := Save(c, sess)
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}
	dst := s.path(c.Name)
	tmp, err := os.CreateTemp(s.Dir, ".save-*")
	if err != nil {
		return fmt.Errorf("writing save: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing save: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing save: %w", err)
	}
	return nil
}

// Get reads and validates a character's save.
func (s *FileStore) Get(_ context.Context, name string) (*SaveData, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", errs.ErrCharacterNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSaveFileCorrupted, err)
	}
	return Load(data)
}

// List returns every readable save, sorted by name. Unreadable files are
// skipped.
func (s *FileStore) List(_ context.Context) ([]Summary, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		sd, err := Load(data)
		if err != nil {
			continue
		}
		out = append(out, Summary{Name: sd.Name, Class: sd.Class, Level: sd.Level})
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes a character's save.
func (s *FileStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", errs.ErrCharacterNotFound, name)
	}
	return err
}

func (s *FileStore) Close() error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS characters (
	key        TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	class      TEXT NOT NULL,
	level      INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps saves in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a save database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating save directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open save database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping save database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put upserts a character's save.
func (s *SQLiteStore) Put(ctx context.Context, c *types.Character, sess Session) error {
	data, err := Save(c, sess)
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO characters (key, name, class, level, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			level = excluded.level,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		Key(c.Name), c.Name, string(c.Class), c.Level, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing save: %w", err)
	}
	return nil
}

// Get reads and validates a character's save.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*SaveData, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM characters WHERE key = ?`, Key(name)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", errs.ErrCharacterNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading save: %w", err)
	}
	return Load([]byte(data))
}

// List returns every save, sorted by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, class, level FROM characters`)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var class string
		if err := rows.Scan(&sum.Name, &class, &sum.Level); err != nil {
			return nil, fmt.Errorf("listing saves: %w", err)
		}
		sum.Class = types.Class(class)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes a character's save.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM characters WHERE key = ?`, Key(name))
	if err != nil {
		return fmt.Errorf("deleting save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", errs.ErrCharacterNotFound, name)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sortSummaries(list []Summary) {
	slices.SortFunc(list, func(a, b Summary) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
