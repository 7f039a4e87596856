package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "dcrmctl.pid")

	f, err := pid.Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	_, err = pid.Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	require.NoError(t, f.Release())
	require.NoError(t, f.Release())
	assert.NoFileExists(t, path)
}

func TestAcquireStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcrmctl.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o600))

	f, err := pid.Acquire(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Release() })
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), pid.DefaultName), pid.DefaultPath())
}
