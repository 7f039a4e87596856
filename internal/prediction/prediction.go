// Package prediction hosts the classification collaborator. The only
// implementation today is a fixed-output mock standing in for a real
// inference service.
package prediction

import (
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/logger"
)

// NewService builds the guarded mock predictor
func NewService(cfg Config) (*Guard, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	logger.Debug().
		Dur("delay", cfg.Delay).
		Msg("Using mock predictor")

	return NewGuard(NewMock(cfg.Delay)), nil
}
