package waveform

import "codeberg.org/mutker/dcrmctl/internal/errors"

const (
	ErrReadFailed    = errors.ErrorCode("waveform_read_failed")
	ErrMalformedLine = errors.ErrorCode("waveform_malformed_line")
)
