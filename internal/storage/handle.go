// Package storage owns the single SQLite connection shared by the sampling
// engine and the query path.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/record"

	_ "github.com/mattn/go-sqlite3"
)

// Handle is a mutex-guarded connection to the store. At most one statement is
// in flight at any time, whichever goroutine issues it.
type Handle struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the database file at cfg.DBPath. It does not create
// the schema; see EnsureSchema.
func Open(cfg Config) (*Handle, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Str("path", cfg.DBPath).Msg("Opening store")

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=%d", cfg.DBPath, busyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	// One logical connection; the mutex serialises its users.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "ping_database",
			Error: err.Error(),
		})
	}

	logger.Info().Str("path", cfg.DBPath).Msg("Store opened")

	return &Handle{db: db}, nil
}

// WithConnection runs fn with exclusive access to the underlying connection.
// No other statement runs on the handle until fn returns.
func (h *Handle) WithConnection(ctx context.Context, fn func(conn *sql.Conn) error) error {
	errFactory := errors.New()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return errFactory.Wrap(ErrStorage, errFactory.New(ErrClosed))
	}

	conn, err := h.db.Conn(ctx)
	if err != nil {
		return errFactory.Wrap(ErrStorage, err)
	}
	defer conn.Close()

	return fn(conn)
}

// Write inserts one row for rec into its kind's table.
func (h *Handle) Write(ctx context.Context, rec record.Record) error {
	return h.WithConnection(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, record.InsertSQL(rec.Kind()), rec.Values()...); err != nil {
			return errors.New().Wrap(ErrStorage, fmt.Errorf("insert %s: %w", rec.Kind(), err))
		}
		return nil
	})
}

// Query runs q and decodes every returned row.
func (h *Handle) Query(ctx context.Context, q record.Query) ([]record.Record, error) {
	var out []record.Record

	err := h.WithConnection(ctx, func(conn *sql.Conn) error {
		errFactory := errors.New()

		rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return errFactory.Wrap(ErrStorage, fmt.Errorf("query %s: %w", q.Kind, err))
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return errFactory.Wrap(ErrStorage, err)
		}

		for rows.Next() {
			rec, err := record.Decode(q.Kind, columns, rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}

		if err := rows.Err(); err != nil {
			return errFactory.Wrap(ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// HostExists reports whether a sys row for hostname is already stored.
func (h *Handle) HostExists(ctx context.Context, hostname string) (bool, error) {
	var exists bool

	err := h.WithConnection(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM sys WHERE hostname = ?)", hostname).Scan(&exists)
		if err != nil {
			return errors.New().Wrap(ErrStorage, fmt.Errorf("lookup host %q: %w", hostname, err))
		}
		return nil
	})

	return exists, err
}

// Count returns the number of rows stored for kind.
func (h *Handle) Count(ctx context.Context, kind record.Kind) (int, error) {
	var n int

	err := h.WithConnection(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kind.Table()).Scan(&n); err != nil {
			return errors.New().Wrap(ErrStorage, fmt.Errorf("count %s: %w", kind, err))
		}
		return nil
	})

	return n, err
}

// Close closes the database. Later calls on the handle fail with a storage error.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}

	err := h.db.Close()
	h.db = nil
	if err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	logger.Info().Msg("Store closed")

	return nil
}
