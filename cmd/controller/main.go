package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/autobuy/internal/bridge"
	"github.com/danielpatrickdp/autobuy/internal/config"
	"github.com/danielpatrickdp/autobuy/internal/logging"
	"github.com/danielpatrickdp/autobuy/internal/orchestrator"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
	"github.com/danielpatrickdp/autobuy/internal/store"
)

// #region main
func main() {
	cfgPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// The cycle log always lives in SQLite; preferences may live there too.
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	var backend prefs.Backend = db
	if cfg.PrefsBackend == config.BackendJSON {
		backend = prefs.NewFileBackend(cfg.PrefsPath)
	}
	ps := prefs.Open(backend)
	snap := ps.Snapshot()
	slog.Info("preferences loaded", "backend", cfg.PrefsBackend, "enabled", snap.Enabled, "tier", string(snap.Tier))

	ctrlCfg := cfg.Controller.Build()
	orch := orchestrator.New(ctrlCfg, ps, orchestrator.WithRecorder(logging.NewJournal(db.DB())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.ListenAddr, "error", err)
		os.Exit(1)
	}
	srv := grpc.NewServer()
	bridge.RegisterControllerServer(srv, bridge.NewServer(orch, ps))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		srv.GracefulStop()
	}()

	slog.Info("controller ready",
		"addr", cfg.ListenAddr,
		"menu_timeout", ctrlCfg.MenuTimeout,
		"cooldown", ctrlCfg.Cooldown,
		"command", ctrlCfg.TriggerCommand,
	)
	if err := srv.Serve(lis); err != nil {
		slog.Error("serve failed", "error", err)
	}

	cancel()
	<-orch.Done()
	slog.Info("controller stopped")
}

// #endregion main
