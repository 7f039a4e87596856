package history

import "codeberg.org/mutker/dcrmctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("history_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("history_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Service Errors
	ErrServiceShutdown = errors.ErrShutdownFailed
	ErrDisabled        = errors.ErrorCode("history_disabled")

	// Record Errors
	ErrRecordFailed   = errors.ErrorCode("history_record_failed")
	ErrInvalidRecord  = errors.ErrorCode("history_invalid_record")
	ErrQueryFailed    = errors.ErrorCode("history_query_failed")
	ErrCorruptedEntry = errors.ErrorCode("history_corrupted_entry")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
