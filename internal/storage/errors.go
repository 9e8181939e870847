package storage

import "codeberg.org/mutker/sysrec/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("storage_invalid_db_path")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrStorage      = errors.ErrStorage
	ErrSchemaInit   = errors.ErrSchemaInit
	ErrClosed       = errors.ErrorCode("storage_closed")
)
