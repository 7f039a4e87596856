// Package session holds the current trace, its summary and the latest
// prediction. Each load replaces all three at once.
package session

import (
	"context"
	"io"
	"sync"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/history"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
)

const (
	ErrNoSeries    = errors.ErrorCode("session_no_series")
	ErrStaleSeries = errors.ErrorCode("session_stale_series")
)

// Session is safe for concurrent use
type Session struct {
	predictor prediction.Predictor
	recorder  history.Recorder
	log       logger.Logger
	strict    bool

	mu      sync.RWMutex
	current *analysis.Analysis
	series  waveform.Series
	meta    metadata.Metadata
}

type Option func(*Session)

// WithRecorder stores every loaded and predicted analysis
func WithRecorder(r history.Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithStrictParsing rejects traces with malformed lines
func WithStrictParsing(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

func New(p prediction.Predictor, log logger.Logger, opts ...Option) *Session {
	s := &Session{
		predictor: p,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load parses text, replacing the current series, summary and prediction.
// In strict mode a trace with malformed lines leaves the session untouched.
func (s *Session) Load(ctx context.Context, source, text string) (analysis.Analysis, error) {
	series, report := waveform.ParseWithReport(text)
	return s.load(ctx, source, series, report)
}

// LoadReader is Load reading the trace from r. A read failure leaves the
// session untouched.
func (s *Session) LoadReader(ctx context.Context, source string, r io.Reader) (analysis.Analysis, error) {
	series, report, err := waveform.ParseReader(r)
	if err != nil {
		return analysis.Analysis{}, err
	}

	return s.load(ctx, source, series, report)
}

func (s *Session) load(ctx context.Context, source string, series waveform.Series, report waveform.Report) (analysis.Analysis, error) {
	if s.strict {
		if err := report.Err(); err != nil {
			return analysis.Analysis{}, err
		}
	}

	s.mu.Lock()
	a := analysis.New(source, s.meta, series, report)
	s.series = series
	s.current = &a
	s.mu.Unlock()

	s.log.Info().
		Str("id", a.ID.String()).
		Str("source", source).
		Int("samples", series.Len()).
		Int("dropped", len(report.Dropped)).
		Msg("Trace loaded")
	if len(report.Dropped) > 0 {
		s.log.Debug().Str("report", report.String()).Msg("Malformed lines dropped")
	}

	s.record(ctx, &a)

	return a, nil
}

// SetMetadata replaces the form fields used by the current and future analyses
func (s *Session) SetMetadata(ctx context.Context, m metadata.Metadata) (metadata.Metadata, error) {
	m = m.Normalize()
	if err := m.Validate(); err != nil {
		return metadata.Metadata{}, err
	}

	s.mu.Lock()
	s.meta = m
	var updated *analysis.Analysis
	if s.current != nil {
		a := *s.current
		a.Metadata = m
		s.current = &a
		updated = &a
	}
	s.mu.Unlock()

	if updated != nil {
		s.record(ctx, updated)
	}

	return m, nil
}

// Metadata returns the current form fields
func (s *Session) Metadata() metadata.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.meta
}

// Series returns the current series; nil when nothing was loaded
func (s *Session) Series() waveform.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.series
}

// Summary returns the summary of the current series
func (s *Session) Summary() features.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return features.Summary{}
	}
	return s.current.Summary
}

// Current returns the current analysis
func (s *Session) Current() (analysis.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return analysis.Analysis{}, false
	}
	return *s.current, true
}

// Predict runs the predictor on the current series. A result computed
// for a series that was replaced meanwhile is discarded.
func (s *Session) Predict(ctx context.Context) (prediction.Record, error) {
	errFactory := errors.New()

	s.mu.RLock()
	if s.current == nil {
		s.mu.RUnlock()
		return prediction.Record{}, errFactory.New(ErrNoSeries)
	}
	id := s.current.ID
	series := s.series
	s.mu.RUnlock()

	record, err := s.predictor.Predict(ctx, series)
	if err != nil {
		return prediction.Record{}, err
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != id {
		s.mu.Unlock()
		s.log.Warn().Str("id", id.String()).Msg("Discarding prediction for replaced trace")
		return prediction.Record{}, errFactory.New(ErrStaleSeries)
	}
	a := s.current.WithPrediction(record)
	s.current = &a
	s.mu.Unlock()

	s.log.Info().
		Str("id", id.String()).
		Str("classification", record.Classification).
		Float64("confidence", record.Confidence).
		Msg("Prediction completed")

	s.record(ctx, &a)

	return record, nil
}

func (s *Session) record(ctx context.Context, a *analysis.Analysis) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, a); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			s.log.ErrorWithCode(appErr).Msg("Failed to record analysis")
			return
		}
		s.log.Error().Err(err).Msg("Failed to record analysis")
	}
}
