// Command vellum runs the matching venue: a TCP order-entry server, a
// websocket trade stream, and periodic book snapshotting. Replaces the
// teacher's cmd/main.go / cmd/server/server.go, which wired a single-asset
// engine straight to one net.Server; this wires the multi-symbol
// engine.Engine to internal/netserver and internal/stream, and adds
// persistence (which the teacher never had).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vellum/internal/config"
	"vellum/internal/engine"
	"vellum/internal/netserver"
	"vellum/internal/persistence"
	"vellum/internal/stream"
)

const snapshotInterval = 30 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eng := engine.New(cfg.Fees())
	restoreSnapshots(eng, cfg.SnapshotDir)

	hub := stream.NewHub()
	hub.Subscribe(eng)

	srv := netserver.New(cfg.Address, cfg.Port, eng)

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("netserver exited")
		}
	}()

	wsServer := &http.Server{Addr: cfg.WebsocketAddr, Handler: hub}
	go func() {
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("websocket server exited")
		}
	}()

	go runSnapshotLoop(ctx, eng, cfg.SnapshotDir)

	log.Info().
		Str("tcp", cfg.Address).
		Str("websocket", cfg.WebsocketAddr).
		Msg("vellum venue running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	srv.Shutdown()
	_ = wsServer.Shutdown(context.Background())
	snapshotAll(eng, cfg.SnapshotDir)
}

func restoreSnapshots(eng *engine.Engine, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("no snapshot directory to restore from")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		symbol := symbolFromFilename(entry.Name())
		snap, err := persistence.LoadFromFile(dir, symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed loading snapshot")
			continue
		}
		if err := eng.Restore(symbol, snap); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed restoring snapshot")
		}
	}
}

func runSnapshotLoop(ctx context.Context, eng *engine.Engine, dir string) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshotAll(eng, dir)
		}
	}
}

func snapshotAll(eng *engine.Engine, dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed creating snapshot directory")
		return
	}
	for _, symbol := range eng.Symbols() {
		snap := eng.Snapshot(symbol)
		if err := persistence.SaveToFile(dir, snap); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed saving snapshot")
		}
	}
}

func symbolFromFilename(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}
