package storages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("continuation not found")

// Store persists encoded continuations in sqlite.
type Store struct {
	db *sql.DB
}

// Entry describes a stored continuation without its payload.
type Entry struct {
	ID        string
	Note      string
	Size      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS continuations (
			id TEXT PRIMARY KEY,
			note TEXT NOT NULL DEFAULT '',
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	return &Store{
		db: db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores data under a new id.
func (s *Store) Save(ctx context.Context, data []byte, note string) (id string, err error) {
	id = uuid.NewString()
	now := time.Now().UnixNano()
	err = s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO continuations (id, note, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, note, data, now, now,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save continuation: %w", err)
	}
	return id, nil
}

// Replace overwrites the data stored under id.
func (s *Store) Replace(ctx context.Context, id string, data []byte) error {
	return s.WithTx(ctx, func(tx Tx) error {
		res, err := tx.Exec(ctx,
			`UPDATE continuations SET data = ?, updated_at = ? WHERE id = ?`,
			data, time.Now().UnixNano(), id,
		)
		if err != nil {
			return fmt.Errorf("replace continuation: %w", err)
		}
		return expectOne(res, id)
	})
}

func (s *Store) Load(ctx context.Context, id string) (data []byte, err error) {
	err = s.WithTx(ctx, func(tx Tx) error {
		row, err := tx.QueryRow(ctx, `SELECT data FROM continuations WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return row.Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("load continuation: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM continuations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete continuation: %w", err)
		}
		return expectOne(res, id)
	})
}

// List returns stored continuations, oldest first.
func (s *Store) List(ctx context.Context) (ret []Entry, err error) {
	err = s.WithTx(ctx, func(tx Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, note, length(data), created_at, updated_at FROM continuations ORDER BY created_at, id`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var entry Entry
			var created, updated int64
			if err := rows.Scan(&entry.ID, &entry.Note, &entry.Size, &created, &updated); err != nil {
				return err
			}
			entry.CreatedAt = time.Unix(0, created)
			entry.UpdatedAt = time.Unix(0, updated)
			ret = append(ret, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list continuations: %w", err)
	}
	return ret, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
