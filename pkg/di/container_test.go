package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/muninn/pkg/config"
	"github.com/ssargent/muninn/pkg/replay"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "muninn_di_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(tmpDir, "data")
	cfg.ArchiveDir = filepath.Join(tmpDir, "archives")
	cfg.SnapshotDir = filepath.Join(tmpDir, "snapshots")
	cfg.FsyncInterval = config.Duration(0)
	return cfg
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Config)
	assert.NotNil(t, c.Logger)
}

func TestNewContainer_JSONLogging(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "debug"

	c, err := NewContainer(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Logger)
}

func TestNewContainer_UnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Format = "xml"

	_, err := NewContainer(cfg)
	assert.Error(t, err)
}

func TestContainer_RunStore(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	rs, err := c.RunStore()
	require.NoError(t, err)

	// Memoized: same instance on the second call.
	rs2, err := c.RunStore()
	require.NoError(t, err)
	assert.Same(t, rs, rs2)

	state := &replay.State{Seed: 42, Size: 10, Counter: 1}
	require.NoError(t, rs.Record("checkout/run-1", state))

	got, err := rs.Latest("checkout/run-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(state))
}

func TestContainer_StateIndexRebuild(t *testing.T) {
	cfg := testConfig(t)

	// Record runs in a first container, then reopen: the index must be
	// rebuilt from the log.
	c1, err := NewContainer(cfg)
	require.NoError(t, err)

	rs, err := c1.RunStore()
	require.NoError(t, err)
	require.NoError(t, rs.Record("checkout/a", &replay.State{Seed: 42, Size: 10}))
	require.NoError(t, rs.Record("checkout/b", &replay.State{Seed: 99, Size: 20}))
	require.NoError(t, c1.Close())

	c2, err := NewContainer(cfg)
	require.NoError(t, err)
	defer c2.Close()

	si, err := c2.StateIndex()
	require.NoError(t, err)

	ids, err := si.EqualTo("seed", 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout/a"}, ids)
}

func TestContainer_Server(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	server, err := c.Server()
	require.NoError(t, err)
	assert.NotNil(t, server)

	// Memoized as well.
	server2, err := c.Server()
	require.NoError(t, err)
	assert.Same(t, server, server2)
}

func TestContainer_CloseWithoutOpen(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestContainer_SnapshotRoundTrip(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	pins, err := c.Snapshots()
	require.NoError(t, err)

	payload, err := (&replay.State{Seed: 7, Size: 3}).MarshalBinary()
	require.NoError(t, err)

	id, err := pins.Pin(payload)
	require.NoError(t, err)

	got, err := pins.Get(id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
