package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "node_id: a\ndurability_dir: /var/lib/graphdelta\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5, cfg.Snapshot.MaxRetained)
	assert.Equal(t, "/var/lib/graphdelta/wal", cfg.WALDir())
	assert.Equal(t, "/var/lib/graphdelta/snapshots", cfg.SnapshotDir())
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeConfig(t, "workers: 2\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedElectionTimeoutRange(t *testing.T) {
	path := writeConfig(t, `
node_id: a
durability_dir: /var/lib/graphdelta
raft:
  election_timeout_min_ms: 300
  election_timeout_max_ms: 150
  heartbeat_interval_ms: 50
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresListenAddrWhenHAEnabled(t *testing.T) {
	path := writeConfig(t, "node_id: a\ndurability_dir: /var/lib/graphdelta\nha_enabled: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresBucketWhenArchiveEnabled(t *testing.T) {
	path := writeConfig(t, "node_id: a\ndurability_dir: /var/lib/graphdelta\narchive:\n  enabled: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAllowsArchiveDisabledByDefault(t *testing.T) {
	path := writeConfig(t, "node_id: a\ndurability_dir: /var/lib/graphdelta\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Archive.Enabled)
}
