// Package config loads and validates a node's startup configuration: the
// durability directories, snapshot retention policy, Raft timing, peer
// RPC timeout, and worker pool size from spec §6's recognised options,
// plus the cluster bootstrap fields every multi-node deployment needs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/graphdelta/pkg/wal"
)

// PeerConfig names one other cluster member reachable over peer RPC.
type PeerConfig struct {
	ID      string `yaml:"id" validate:"required"`
	RPCAddr string `yaml:"rpc_addr" validate:"required"`
}

// RaftConfig holds the election/heartbeat timing from §6.
type RaftConfig struct {
	ElectionTimeoutMinMS int `yaml:"election_timeout_min_ms" validate:"required,gt=0"`
	ElectionTimeoutMaxMS int `yaml:"election_timeout_max_ms" validate:"required,gtfield=ElectionTimeoutMinMS"`
	HeartbeatIntervalMS  int `yaml:"heartbeat_interval_ms" validate:"required,gt=0"`
}

// RPCConfig holds the peer RPC transport's call timeout.
type RPCConfig struct {
	CallTimeoutMS int `yaml:"call_timeout_ms" validate:"required,gt=0"`
}

// SnapshotConfig holds retention and cadence for C5.
type SnapshotConfig struct {
	MaxRetained int           `yaml:"max_retained" validate:"min=-1"`
	Period      time.Duration `yaml:"period" validate:"required,gt=0"`
}

// ArchiveConfig enables off-box snapshot upload to S3. Archival is
// entirely optional: recovery never depends on it, so a zero-value
// ArchiveConfig (Enabled false) simply skips the upload step.
type ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// WALConfig bounds segment rotation and optional compression for C4.
type WALConfig struct {
	MaxSegmentBytes int64         `yaml:"max_segment_bytes"`
	MaxSegmentAge   time.Duration `yaml:"max_segment_age"`
	Compress        bool          `yaml:"compress"`
}

// Config is a node's full startup configuration.
type Config struct {
	NodeID        string         `yaml:"node_id" validate:"required"`
	DurabilityDir string         `yaml:"durability_dir" validate:"required"`
	Workers       int            `yaml:"workers" validate:"required,gt=0"`
	HAEnabled     bool           `yaml:"ha_enabled"`
	ListenAddr    string         `yaml:"listen_addr" validate:"required_if=HAEnabled true"`
	Peers         []PeerConfig   `yaml:"peers" validate:"dive"`
	Snapshot      SnapshotConfig `yaml:"snapshot"`
	Raft          RaftConfig     `yaml:"raft"`
	RPC           RPCConfig      `yaml:"rpc"`
	WAL           WALConfig      `yaml:"wal"`
	Archive       ArchiveConfig  `yaml:"archive"`
}

// WALDir and SnapshotDir are the fixed subdirectories under DurabilityDir,
// per §6 ("subdirs snapshots/ and wal/").
func (c Config) WALDir() string      { return c.DurabilityDir + "/wal" }
func (c Config) SnapshotDir() string { return c.DurabilityDir + "/snapshots" }

// ElectionTimeoutMin/Max and HeartbeatInterval convert the config's
// millisecond fields into the time.Duration values pkg/raft.Config wants.
func (c Config) ElectionTimeoutMin() time.Duration {
	return time.Duration(c.Raft.ElectionTimeoutMinMS) * time.Millisecond
}

func (c Config) ElectionTimeoutMax() time.Duration {
	return time.Duration(c.Raft.ElectionTimeoutMaxMS) * time.Millisecond
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Raft.HeartbeatIntervalMS) * time.Millisecond
}

func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.RPC.CallTimeoutMS) * time.Millisecond
}

// RotatePolicy converts the WAL config section into the wal.RotatePolicy
// pkg/wal.NewWriter wants.
func (c Config) RotatePolicy() wal.RotatePolicy {
	return wal.RotatePolicy{
		MaxBytes: c.WAL.MaxSegmentBytes,
		MaxAge:   c.WAL.MaxSegmentAge,
		Compress: c.WAL.Compress,
	}
}

// PeerAddrs returns the configured peers as a peer-id -> rpc-addr map, the
// shape pkg/peerrpc.DialAll wants.
func (c Config) PeerAddrs() map[string]string {
	addrs := make(map[string]string, len(c.Peers))
	for _, p := range c.Peers {
		addrs[p.ID] = p.RPCAddr
	}
	return addrs
}

// PeerIDs returns just the ids from Peers, in configured order, the shape
// pkg/raft.New's peerIDs argument wants.
func (c Config) PeerIDs() []string {
	ids := make([]string, len(c.Peers))
	for i, p := range c.Peers {
		ids[i] = p.ID
	}
	return ids
}

func defaults() Config {
	return Config{
		Workers: 4,
		Snapshot: SnapshotConfig{
			MaxRetained: 5,
			Period:      10 * time.Minute,
		},
		Raft: RaftConfig{
			ElectionTimeoutMinMS: 150,
			ElectionTimeoutMaxMS: 300,
			HeartbeatIntervalMS:  50,
		},
		RPC: RPCConfig{CallTimeoutMS: 2000},
	}
}

var validate = validator.New()

// Load reads a YAML file at path, fills in defaults for anything left
// unset, and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return cfg, nil
}
