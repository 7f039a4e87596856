package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/logger"
)

const (
	backupDirName    = "backups"
	backupTimeLayout = "20060102T150405Z"
)

var historyTables = []string{"analyses", "schema_versions"}

// backupPath is <dbdir>/backups/history_v<version>_<utc timestamp>.db
func backupPath(dbPath string, version int, now time.Time) string {
	name := fmt.Sprintf("history_v%d_%s.db", version, now.UTC().Format(backupTimeLayout))
	return filepath.Join(filepath.Dir(dbPath), backupDirName, name)
}

// snapshot copies the live database with VACUUM INTO, which must run
// outside a transaction.
func snapshot(db *sql.DB, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), defaultDirPerm); err != nil {
		return schemaError(ErrSchemaMigrationFailed, failure{Phase: "backup_dir", Path: filepath.Dir(dst)}, err)
	}

	quoted := strings.ReplaceAll(dst, "'", "''")
	if _, err := db.Exec("VACUUM INTO '" + quoted + "'"); err != nil {
		return schemaError(ErrSchemaMigrationFailed, failure{Phase: "backup", Path: dst}, err)
	}

	return nil
}

// ValidateAndUpdateSchema brings the database to SchemaVersion. Stored
// analyses from another version are not converted: the old file is copied
// to the backups directory and the tables are recreated empty.
func ValidateAndUpdateSchema(db *sql.DB, dbPath string, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	switch version {
	case SchemaVersion:
		log.Debug().Int("version", version).Msg("History schema is current")
		return nil
	case 0:
		return InitSchema(db, log)
	}

	dst := backupPath(dbPath, version, time.Now())
	if err := snapshot(db, dst); err != nil {
		return err
	}
	log.Warn().
		Int("found", version).
		Int("want", SchemaVersion).
		Str("backup", dst).
		Msg("History schema version changed, previous analyses moved to backup")

	err = inTx(db, log, ErrSchemaMigrationFailed, func(tx *sql.Tx) error {
		for _, table := range historyTables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return schemaError(ErrSchemaMigrationFailed, failure{Phase: "drop_table", Table: table}, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return InitSchema(db, log)
}
