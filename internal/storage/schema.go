package storage

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/record"
)

// EnsureSchema creates the table of every record kind if it is missing. Each
// table is created independently: a failure is logged and the remaining
// tables are still attempted. The failures are returned joined.
func (h *Handle) EnsureSchema(ctx context.Context) error {
	errFactory := errors.New()
	var failed []error

	for _, kind := range record.Kinds {
		ddl := record.CreateTableSQL(kind)

		err := h.WithConnection(ctx, func(conn *sql.Conn) error {
			_, err := conn.ExecContext(ctx, ddl)
			return err
		})
		if err != nil {
			err = errFactory.Wrap(ErrSchemaInit, err).WithData(struct {
				Table string
				Error string
			}{
				Table: kind.Table(),
				Error: err.Error(),
			})
			logger.ErrorWithCode(err).Str("table", kind.Table()).Msg("Failed to create table")
			failed = append(failed, err)
			continue
		}

		logger.Debug().Str("table", kind.Table()).Msg("Table ready")
	}

	return errors.Join(failed...)
}

// TableExists checks if a table exists
func (h *Handle) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool

	err := h.WithConnection(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
		if err != nil {
			return errors.New().WithData(ErrStorage, struct {
				Phase string
				Table string
				Error string
			}{
				Phase: "check_table_exists",
				Table: tableName,
				Error: err.Error(),
			})
		}
		return nil
	})

	return exists, err
}
