package prediction

import "codeberg.org/mutker/dcrmctl/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrInvalidDelay     = errors.ErrInvalidDelay
	ErrBusy             = errors.ErrorCode("prediction_busy")
	ErrInvalidInput     = errors.ErrorCode("prediction_invalid_input")
	ErrModelUnavailable = errors.ErrorCode("prediction_model_unavailable")
)
