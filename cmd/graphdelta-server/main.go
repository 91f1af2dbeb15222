// Command graphdelta-server runs one durability-core node: it recovers
// state from the newest snapshot and WAL tail, opens a WAL writer, and (in
// HA mode) joins the Raft cluster named by its config before accepting
// committed transactions through the orchestrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/graphdelta/pkg/config"
	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/metrics"
	"github.com/dd0wney/graphdelta/pkg/orchestrator"
	"github.com/dd0wney/graphdelta/pkg/peerrpc"
	"github.com/dd0wney/graphdelta/pkg/raft"
	"github.com/dd0wney/graphdelta/pkg/recovery"
	"github.com/dd0wney/graphdelta/pkg/snapshot"
	"github.com/dd0wney/graphdelta/pkg/snapshot/archive"
	"github.com/dd0wney/graphdelta/pkg/wal"
)

func main() {
	configPath := flag.String("config", "./graphdelta.yaml", "Path to node config YAML")
	metricsAddr := flag.String("metrics", ":9400", "Address to serve /metrics and /healthz on")
	flag.Parse()

	logging.SetDefaultLogger(logging.NewLogrusDefaultLogger())
	logger := logging.DefaultLogger().With(logging.Component("server"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", logging.Path(*configPath), logging.Error(err))
		os.Exit(1)
	}
	logger = logger.With(logging.String("node_id", cfg.NodeID))
	logger.Info("starting node", logging.String("durability_dir", cfg.DurabilityDir), logging.Bool("ha_enabled", cfg.HAEnabled))

	if err := os.MkdirAll(cfg.WALDir(), 0o755); err != nil {
		logger.Error("failed to create wal dir", logging.Error(err))
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.SnapshotDir(), 0o755); err != nil {
		logger.Error("failed to create snapshot dir", logging.Error(err))
		os.Exit(1)
	}

	result, err := recovery.Recover(cfg.SnapshotDir(), cfg.WALDir())
	if err != nil {
		logger.Error("recovery failed", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("recovery complete",
		logging.Path(result.UsedSnapshot),
		logging.Uint64("last_tx", result.LastTxID))

	writer, err := wal.NewWriter(cfg.WALDir(), cfg.RotatePolicy())
	if err != nil {
		logger.Error("failed to open wal writer", logging.Error(err))
		os.Exit(1)
	}
	defer writer.Close()

	var peer *raft.Peer
	var transport *peerrpc.ClientSet
	var rpcServer *peerrpc.Server

	if cfg.HAEnabled {
		transport, err = peerrpc.DialAll(cfg.PeerAddrs(), cfg.CallTimeout())
		if err != nil {
			logger.Error("failed to dial peers", logging.Error(err))
			os.Exit(1)
		}
		defer transport.Close()

		peer = raft.New(cfg.NodeID, cfg.PeerIDs(), raft.Config{
			ElectionTimeoutMin: cfg.ElectionTimeoutMin(),
			ElectionTimeoutMax: cfg.ElectionTimeoutMax(),
			HeartbeatInterval:  cfg.HeartbeatInterval(),
		}, transport, result.Store)

		rpcServer, err = peerrpc.Listen(cfg.ListenAddr, peer, cfg.Workers)
		if err != nil {
			logger.Error("failed to listen for peer rpc", logging.Error(err))
			os.Exit(1)
		}
		defer rpcServer.Close()
		logger.Info("peer rpc listening", logging.String("addr", cfg.ListenAddr))

		go runRaftTicker(peer, cfg.HeartbeatInterval())
	}

	orch := orchestrator.New(writer, peer, orchestrator.Config{
		HAEnabled:     cfg.HAEnabled,
		QuorumTimeout: cfg.ElectionTimeoutMax(),
	})
	_ = orch // the commit path is driven by the query/transaction layer, out of scope here

	var uploader *archive.Uploader
	if cfg.Archive.Enabled {
		uploader, err = archive.New(context.Background(), archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Region:          cfg.Archive.Region,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		})
		if err != nil {
			logger.Error("failed to init snapshot archive", logging.Error(err))
			os.Exit(1)
		}
	}

	stopSnapshots := runSnapshotLoop(logger, result, cfg, uploader)
	defer stopSnapshots()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.DefaultRegistry().GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	httpServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		logger.Info("metrics server listening", logging.String("addr", *metricsAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", logging.Error(err))
		}
	}()
	defer httpServer.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")
}

// runRaftTicker drives Peer.Tick at a fraction of the heartbeat interval so
// elections and heartbeats fire promptly without busy-looping.
func runRaftTicker(peer *raft.Peer, heartbeat time.Duration) {
	interval := heartbeat / 2
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		peer.Tick()
	}
}

// runSnapshotLoop takes a snapshot at cfg.Snapshot.Period, prunes retained
// snapshots and the WAL segments they cover, and optionally archives the
// new snapshot off-box. The query/transaction layer that actually mutates
// result.Store is out of scope here; this loop checkpoints whatever state
// is visible to it at each tick. It returns a stop function for graceful
// shutdown.
func runSnapshotLoop(logger logging.Logger, result recovery.Result, cfg config.Config, uploader *archive.Uploader) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Snapshot.Period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				takeSnapshot(logger, result, cfg, uploader)
			}
		}
	}()
	return func() { close(stop) }
}

func takeSnapshot(logger logging.Logger, result recovery.Result, cfg config.Config, uploader *archive.Uploader) {
	vertices, edges, keys := snapshot.FromStore(result.Store)
	snap := snapshot.Snapshot{
		VertexGenCount: result.VertexGenCount,
		EdgeGenCount:   result.EdgeGenCount,
		SnapshotTxID:   result.LastTxID,
		IndexKeys:      keys,
		Vertices:       vertices,
		Edges:          edges,
	}

	path, err := snapshot.WriteAtomic(cfg.SnapshotDir(), time.Now(), snap)
	if err != nil {
		logger.Warn("snapshot failed", logging.Error(err))
		return
	}
	if err := snapshot.PruneSnapshots(cfg.SnapshotDir(), cfg.Snapshot.MaxRetained); err != nil {
		logger.Warn("snapshot prune failed", logging.Error(err))
	}
	if err := snapshot.PruneWAL(cfg.WALDir(), snap); err != nil {
		logger.Warn("wal prune failed", logging.Error(err))
	}
	if uploader != nil {
		if err := uploader.Upload(context.Background(), path); err != nil {
			logger.Warn("snapshot archive upload failed", logging.Path(path), logging.Error(err))
		}
	}
}
