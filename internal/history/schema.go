package history

import (
	"database/sql"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS analyses (
	       id                 TEXT PRIMARY KEY,
	       created_at         INTEGER NOT NULL,
	       source             TEXT NOT NULL DEFAULT '',
	       breaker_id         TEXT NOT NULL DEFAULT '',
	       substation         TEXT NOT NULL DEFAULT '',
	       manufacturer       TEXT NOT NULL DEFAULT '',
	       operation          TEXT NOT NULL DEFAULT '',
	       test_date          TEXT NOT NULL DEFAULT '',
	       operator           TEXT NOT NULL DEFAULT '',
	       notes              TEXT NOT NULL DEFAULT '',
	       samples            INTEGER,
	       value_max          REAL,
	       value_min          REAL,
	       value_mean         REAL,
	       lines_total        INTEGER NOT NULL CHECK (lines_total >= 0),
	       lines_dropped      INTEGER NOT NULL CHECK (lines_dropped >= 0),
	       dropped_detail     TEXT NOT NULL DEFAULT '[]',
	       classification     TEXT,
	       confidence         REAL CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
	       recommended_action TEXT
	   );
	   CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at);`

	insertAnalysisSQL = `
    INSERT INTO analyses (
        id, created_at, source,
        breaker_id, substation, manufacturer, operation, test_date, operator, notes,
        samples, value_max, value_min, value_mean,
        lines_total, lines_dropped, dropped_detail,
        classification, confidence, recommended_action
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        source = excluded.source,
        breaker_id = excluded.breaker_id,
        substation = excluded.substation,
        manufacturer = excluded.manufacturer,
        operation = excluded.operation,
        test_date = excluded.test_date,
        operator = excluded.operator,
        notes = excluded.notes,
        samples = excluded.samples,
        value_max = excluded.value_max,
        value_min = excluded.value_min,
        value_mean = excluded.value_mean,
        lines_total = excluded.lines_total,
        lines_dropped = excluded.lines_dropped,
        dropped_detail = excluded.dropped_detail,
        classification = excluded.classification,
        confidence = excluded.confidence,
        recommended_action = excluded.recommended_action`

	selectRecentSQL = `
    SELECT
        id, created_at, source,
        breaker_id, substation, manufacturer, operation, test_date, operator, notes,
        samples, value_max, value_min, value_mean,
        lines_total, lines_dropped, dropped_detail,
        classification, confidence, recommended_action
    FROM analyses
    ORDER BY created_at DESC, rowid DESC
    LIMIT ?`

	insertVersionSQL = `INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`
	selectVersionSQL = `SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1`
	tableCountSQL    = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
)

// failure is attached as data to schema errors
type failure struct {
	Phase string `json:"phase"`
	Path  string `json:"path,omitempty"`
	Table string `json:"table,omitempty"`
	Err   string `json:"error"`
}

func schemaError(code errors.ErrorCode, f failure, err error) errors.Error {
	f.Err = err.Error()
	return errors.New().WithData(code, f)
}

// inTx runs fn in a transaction, rolling back unless fn and the commit succeed
func inTx(db *sql.DB, log logger.Logger, code errors.ErrorCode, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return schemaError(code, failure{Phase: "begin"}, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return schemaError(code, failure{Phase: "commit"}, err)
	}

	return nil
}

// InitSchema creates the analyses table and stamps SchemaVersion
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Int("version", SchemaVersion).Msg("Creating history schema")

	err := inTx(db, log, ErrSchemaInitFailed, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return schemaError(ErrSchemaInitFailed, failure{Phase: "create_tables"}, err)
		}
		if _, err := tx.Exec(insertVersionSQL, SchemaVersion); err != nil {
			return schemaError(ErrSchemaInitFailed, failure{Phase: "record_version"}, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("version", SchemaVersion).Msg("History schema ready")

	return nil
}

// GetSchemaVersion returns the stamped schema version, 0 for a fresh database
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRow(selectVersionSQL).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, schemaError(ErrSchemaValidationFailed, failure{Phase: "read_version"}, err)
	}

	return version, nil
}

// TableExists reports whether the named table is present
func TableExists(db *sql.DB, table string) (bool, error) {
	var n int
	if err := db.QueryRow(tableCountSQL, table).Scan(&n); err != nil {
		return false, schemaError(ErrSchemaValidationFailed, failure{Phase: "lookup_table", Table: table}, err)
	}

	return n > 0, nil
}
