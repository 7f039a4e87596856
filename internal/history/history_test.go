package history_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/history"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalysis(t *testing.T, text string) analysis.Analysis {
	t.Helper()
	series, report := waveform.ParseWithReport(text)
	return analysis.New("trace.csv", metadata.Metadata{
		BreakerID: "CB-7",
		Operation: metadata.OperationOpen,
		TestDate:  "2024-05-02",
	}, series, report)
}

func enabledConfig(t *testing.T) history.Config {
	t.Helper()
	cfg := history.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "history.db")
	return cfg
}

func TestDisabledRecorder(t *testing.T) {
	rec, err := history.NewService(history.DefaultConfig(), logger.Component("test"))
	require.NoError(t, err)
	assert.False(t, rec.Enabled())

	a := newAnalysis(t, "0,1")
	require.NoError(t, rec.Record(context.Background(), &a))

	_, err = rec.Recent(context.Background(), 10)
	assert.True(t, errors.HasCode(err, history.ErrDisabled))
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := history.Config{Enabled: true}
	_, err := history.NewService(cfg, logger.Component("test"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrInvalidDBPath))

	cfg = history.DefaultConfig()
	cfg.BatchSize = -1
	assert.Error(t, cfg.Validate())
}

func TestRecordAndRecent(t *testing.T) {
	cfg := enabledConfig(t)
	rec, err := history.NewService(cfg, logger.Component("test"))
	require.NoError(t, err)
	assert.True(t, rec.Enabled())

	ctx := context.Background()

	first := newAnalysis(t, "time,value\n0,1\n1,3")
	first.CreatedAt = first.CreatedAt.Add(-time.Minute)
	require.NoError(t, rec.Record(ctx, &first))

	second := newAnalysis(t, "").WithPrediction(prediction.Record{
		Classification:    prediction.MockClassification,
		Confidence:        prediction.MockConfidence,
		RecommendedAction: prediction.MockRecommendedAction,
	})
	require.NoError(t, rec.Record(ctx, &second))

	got, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	assert.Equal(t, second.ID, got[0].ID)
	assert.True(t, got[0].Summary.IsEmpty())
	require.NotNil(t, got[0].Prediction)
	assert.Equal(t, prediction.MockClassification, got[0].Prediction.Classification)
	assert.Equal(t, prediction.MockConfidence, got[0].Prediction.Confidence)

	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, first.CreatedAt, got[1].CreatedAt)
	assert.Equal(t, first.Metadata, got[1].Metadata)
	assert.Equal(t, first.Summary, got[1].Summary)
	assert.Equal(t, first.Parse, got[1].Parse)
	assert.Nil(t, got[1].Prediction)

	require.NoError(t, rec.Close())
}

func TestRecordUpdatesPrediction(t *testing.T) {
	rec, err := history.NewService(enabledConfig(t), logger.Component("test"))
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	a := newAnalysis(t, "0,2\n1,4")
	require.NoError(t, rec.Record(ctx, &a))

	predicted := a.WithPrediction(prediction.Record{Classification: "Healthy", Confidence: 0.5})
	require.NoError(t, rec.Record(ctx, &predicted))

	got, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Prediction)
	assert.Equal(t, 0.5, got[0].Prediction.Confidence)
}

func TestRecordUpdatesMetadata(t *testing.T) {
	rec, err := history.NewService(enabledConfig(t), logger.Component("test"))
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	a := newAnalysis(t, "0,1")
	require.NoError(t, rec.Record(ctx, &a))

	edited := a
	edited.Metadata = metadata.Metadata{
		BreakerID:    "CB-9",
		Substation:   "South",
		Manufacturer: "ABB",
		Operation:    metadata.OperationCloseOpen,
		TestDate:     "2024-06-01",
		Operator:     "kim",
		Notes:        "retest",
	}
	require.NoError(t, rec.Record(ctx, &edited))

	got, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, edited.Metadata, got[0].Metadata)
	assert.Equal(t, a.Summary, got[0].Summary)
}

func TestBatchedRecordsVisibleAfterClose(t *testing.T) {
	cfg := enabledConfig(t)
	cfg.BatchSize = 10
	cfg.BatchTimeout = 60

	rec, err := history.NewService(cfg, logger.Component("test"))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		a := newAnalysis(t, "0,1")
		require.NoError(t, rec.Record(ctx, &a))
	}
	require.NoError(t, rec.Close())

	rec, err = history.NewService(cfg, logger.Component("test"))
	require.NoError(t, err)
	defer rec.Close()

	got, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRecordRejectsNil(t *testing.T) {
	rec, err := history.NewService(enabledConfig(t), logger.Component("test"))
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, history.ErrInvalidRecord))
}

func TestSchemaMigrationCreatesBackup(t *testing.T) {
	cfg := enabledConfig(t)

	rec, err := history.NewService(cfg, logger.Component("test"))
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`, history.SchemaVersion+1)
	require.NoError(t, err)

	version, err := history.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, history.SchemaVersion+1, version)
	require.NoError(t, db.Close())

	rec, err = history.NewService(cfg, logger.Component("test"))
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.DBPath), "backups", "history_v*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
