package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*analysis.Analysis
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, schemaError(ErrStorageInit, failure{Phase: "create_directory", Path: cfg.DBPath}, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, schemaError(ErrStorageInit, failure{Phase: "open_database", Path: cfg.DBPath}, err)
	}

	if err := ValidateAndUpdateSchema(db, cfg.DBPath, log); err != nil {
		_ = db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("History repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*analysis.Analysis, 0, max(cfg.BatchSize, 1)),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	// Periodic flushing only matters when records can sit in the buffer
	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Record(a *analysis.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, a)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]analysis.Analysis, error) {
	errFactory := errors.New()

	r.mu.Lock()
	if err := r.flush(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, selectRecentSQL, clampLimit(limit))
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var result []analysis.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return result, nil
}

func (r *repository) Close() error {
	if r.flushTicker != nil {
		close(r.shutdownChan)
		r.flushTicker.Stop()
	}

	// Wait for the flusher to finish its final flush
	<-r.flushDoneChan

	r.mu.Lock()
	err := r.flush()
	r.mu.Unlock()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to flush pending analyses on close")
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		_ = r.db.Close()
		return schemaError(ErrStorageClose, failure{Phase: "checkpoint_wal", Path: r.cfg.DBPath}, err)
	}

	if err := r.db.Close(); err != nil {
		return schemaError(ErrStorageClose, failure{Phase: "close_database", Path: r.cfg.DBPath}, err)
	}

	r.logger.Info().Msg("History repository closed gracefully")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer in one transaction. Callers hold r.mu.
// On failure the buffer is kept so the next flush retries it.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	err := inTx(r.db, r.logger, ErrTransactionFailed, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertAnalysisSQL)
		if err != nil {
			return errors.New().Wrap(ErrTransactionFailed, err)
		}
		defer stmt.Close()

		for _, a := range r.buffer {
			values, err := analysisValues(a)
			if err != nil {
				return errors.New().Wrap(ErrInvalidRecord, err)
			}
			if _, err := stmt.Exec(values...); err != nil {
				r.logger.Debug().Err(err).Str("id", a.ID.String()).Msg("Insert failed")
				return errors.New().Wrap(ErrRecordFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed analyses to database")
	r.buffer = r.buffer[:0]

	return nil
}

func analysisValues(a *analysis.Analysis) ([]interface{}, error) {
	dropped := a.Parse.Dropped
	if dropped == nil {
		dropped = []waveform.DroppedLine{}
	}
	detail, err := json.Marshal(dropped)
	if err != nil {
		return nil, err
	}

	var (
		classification    *string
		confidence        *float64
		recommendedAction *string
	)
	if p := a.Prediction; p != nil {
		classification = &p.Classification
		confidence = &p.Confidence
		recommendedAction = &p.RecommendedAction
	}

	return []interface{}{
		a.ID.String(),
		a.CreatedAt.UnixMilli(),
		a.Source,
		a.Metadata.BreakerID,
		a.Metadata.Substation,
		a.Metadata.Manufacturer,
		string(a.Metadata.Operation),
		a.Metadata.TestDate,
		a.Metadata.Operator,
		a.Metadata.Notes,
		a.Summary.Samples,
		a.Summary.Max,
		a.Summary.Min,
		a.Summary.Mean,
		a.Parse.Lines,
		len(a.Parse.Dropped),
		string(detail),
		classification,
		confidence,
		recommendedAction,
	}, nil
}

func scanAnalysis(rows *sql.Rows) (analysis.Analysis, error) {
	var (
		a                 analysis.Analysis
		id                string
		createdAt         int64
		operation         string
		samples           sql.NullInt64
		valueMax          sql.NullFloat64
		valueMin          sql.NullFloat64
		valueMean         sql.NullFloat64
		linesDropped      int
		droppedDetail     string
		classification    sql.NullString
		confidence        sql.NullFloat64
		recommendedAction sql.NullString
	)

	err := rows.Scan(
		&id, &createdAt, &a.Source,
		&a.Metadata.BreakerID, &a.Metadata.Substation, &a.Metadata.Manufacturer,
		&operation, &a.Metadata.TestDate, &a.Metadata.Operator, &a.Metadata.Notes,
		&samples, &valueMax, &valueMin, &valueMean,
		&a.Parse.Lines, &linesDropped, &droppedDetail,
		&classification, &confidence, &recommendedAction,
	)
	if err != nil {
		return analysis.Analysis{}, errors.New().Wrap(ErrQueryFailed, err)
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return analysis.Analysis{}, errors.New().Wrap(ErrCorruptedEntry, err)
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.Metadata.Operation = metadata.Operation(operation)

	if linesDropped > 0 {
		if err := json.Unmarshal([]byte(droppedDetail), &a.Parse.Dropped); err != nil {
			return analysis.Analysis{}, errors.New().Wrap(ErrCorruptedEntry, err)
		}
	}

	a.Summary = features.Summary{
		Max:  nullFloat(valueMax),
		Min:  nullFloat(valueMin),
		Mean: nullFloat(valueMean),
	}
	if samples.Valid {
		n := int(samples.Int64)
		a.Summary.Samples = &n
	}

	if classification.Valid {
		a.Prediction = &prediction.Record{
			Classification:    classification.String,
			Confidence:        confidence.Float64,
			RecommendedAction: recommendedAction.String,
			Features:          a.Summary,
		}
	}

	return a, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
