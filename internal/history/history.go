// Package history persists completed analyses to a local sqlite database.
package history

import (
	"context"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("History disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("History service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, a *analysis.Analysis) error {
	errFactory := errors.New()

	if a == nil {
		return errFactory.New(ErrInvalidRecord)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(a); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]analysis.Analysis, error) {
	return s.repo.Recent(ctx, limit)
}

func (*service) Enabled() bool {
	return true
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *analysis.Analysis) error {
	return nil
}

func (*noopRecorder) Recent(_ context.Context, _ int) ([]analysis.Analysis, error) {
	return nil, errors.New().New(ErrDisabled)
}

func (*noopRecorder) Enabled() bool {
	return false
}

func (*noopRecorder) Close() error {
	return nil
}
