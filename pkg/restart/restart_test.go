package restart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/satconnect/pkg/logger"
)

func writeScript(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snipsRestart.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), mode))

	return path
}

func TestScriptRestart(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "restarted")
	path := writeScript(t, "echo restarting\ntouch "+marker, 0o755)

	require.NoError(t, NewScript(path, logger.NewTestLogger()).Restart(context.Background()))

	_, err := os.Stat(marker)
	require.NoError(t, err)
}

func TestScriptRestartFailure(t *testing.T) {
	path := writeScript(t, "exit 3", 0o755)

	err := NewScript(path, logger.NewTestLogger()).Restart(context.Background())
	require.ErrorIs(t, err, ErrRestartFailed)
}

func TestScriptRestartMissing(t *testing.T) {
	err := NewScript(filepath.Join(t.TempDir(), "absent.sh"), logger.NewTestLogger()).Restart(context.Background())
	require.ErrorIs(t, err, ErrRestartFailed)
}

func TestEnsureExecutable(t *testing.T) {
	path := writeScript(t, "true", 0o644)

	require.NoError(t, EnsureExecutable(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.NoError(t, EnsureExecutable(path))
	require.NoError(t, NewScript(path, logger.NewTestLogger()).Restart(context.Background()))
}

func TestEnsureExecutableMissing(t *testing.T) {
	require.Error(t, EnsureExecutable(filepath.Join(t.TempDir(), "absent.sh")))
}
