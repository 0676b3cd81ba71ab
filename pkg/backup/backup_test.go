package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

const pristine = "[snips-common]\nbus = \"mqtt\"\n"

func newStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	live := filepath.Join(dir, "snips.toml")
	require.NoError(t, os.WriteFile(live, []byte(pristine), 0o600))

	return NewStore(live, filepath.Join(dir, "backup.txt"), logger.NewTestLogger()), live
}

func TestEnsureCreatesSnapshotOnce(t *testing.T) {
	store, live := newStore(t)

	created, err := store.Ensure()
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, store.Exists())

	require.NoError(t, os.WriteFile(live, []byte("[snips-common]\nmqtt = \"10.0.0.2:1883\"\n"), 0o600))

	created, err = store.Ensure()
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, pristine, string(data))
}

func TestDiscardAllowsNewSnapshot(t *testing.T) {
	store, live := newStore(t)

	_, err := store.Ensure()
	require.NoError(t, err)

	removed, err := store.Discard()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Exists())

	removed, err = store.Discard()
	require.NoError(t, err)
	assert.False(t, removed)

	changed := "[snips-common]\nmqtt = \"10.0.0.2:1883\"\n"
	require.NoError(t, os.WriteFile(live, []byte(changed), 0o600))

	created, err := store.Ensure()
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, changed, string(data))
}

func TestRestoreYieldsPrePairingContent(t *testing.T) {
	store, live := newStore(t)

	_, err := store.Ensure()
	require.NoError(t, err)

	doc, err := snipsconf.Load(live)
	require.NoError(t, err)
	_, err = snipsconf.SetSatelliteBinding(doc, "10.0.0.2:1883", "kitchen")
	require.NoError(t, err)
	require.NoError(t, doc.Save())

	require.NoError(t, store.Restore())

	data, err := os.ReadFile(live)
	require.NoError(t, err)
	assert.Equal(t, pristine, string(data))
	assert.True(t, store.Exists())
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	store, _ := newStore(t)

	require.ErrorIs(t, store.Restore(), ErrNoBackup)
}

func TestEnsureWithoutLiveConfig(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "missing.toml"), filepath.Join(dir, "backup.txt"), logger.NewTestLogger())

	_, err := store.Ensure()
	require.ErrorIs(t, err, snipsconf.ErrConfigNotFound)
	assert.False(t, store.Exists())
}
