package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{in: "debug", want: logger.DebugLevel},
		{in: "INFO", want: logger.InfoLevel},
		{in: "warn", want: logger.WarnLevel},
		{in: "warning", want: logger.WarnLevel},
		{in: "error", want: logger.ErrorLevel},
		{in: "verbose", want: logger.WarnLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.WarnLevel, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	log := logger.Component("history").With("db", "test.db")
	log.Debug().Msg("opened")

	out := buf.String()
	assert.Contains(t, out, "opened")
	assert.Contains(t, out, "history")
	assert.Contains(t, out, "test.db")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	err := errors.New().WithData(errors.ErrInvalidFormat, "xml")
	logger.ErrorWithCode(err).Msg("render failed")
	logger.Component("report").ErrorWithCode(err).Msg("component render failed")

	out := buf.String()
	assert.Contains(t, out, "render failed")
	assert.Contains(t, out, string(errors.ErrInvalidFormat))
	assert.Contains(t, out, "component render failed")
}
