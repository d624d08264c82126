package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/podofo/internal/config"
	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/imagerender"
	logpkg "github.com/local/podofo/internal/logger"
	"github.com/local/podofo/internal/metrics"
	"github.com/local/podofo/internal/pdfops"
	"github.com/local/podofo/internal/server"
	"github.com/local/podofo/internal/statuscheck"
	"github.com/local/podofo/internal/workspace"
)

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		Service:      "podofo",
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Workspace.Root).Msg("failed to create work dir")
	}
	if n := workspace.SweepStale(cfg.Workspace.Root, cfg.Workspace.StaleAfter); n > 0 {
		log.Info().Int("removed", n).Msg("removed stale workspaces at startup")
	}

	gs := ghostscript.New(cfg.Tools.GhostscriptBin, nil, ghostscript.WithTimeout(cfg.Tools.Timeout))
	var raster pdfops.Rasterizer = gs
	if cfg.Tools.RasterBackend == "mupdf" {
		raster = imagerender.New()
	}
	exec := pdfops.New(pdfops.Options{
		Compressor: gs,
		Rasterizer: raster,
		DefaultDPI: cfg.Tools.DefaultDPI,
		MaxDPI:     cfg.Tools.MaxDPI,
	})
	status := statuscheck.New(statuscheck.Options{
		GhostscriptBin: gs.Binary(),
		RasterBackend:  cfg.Tools.RasterBackend,
		WorkRoot:       cfg.Workspace.Root,
	})

	s := server.New(exec, status, server.Options{
		WorkRoot:       cfg.Workspace.Root,
		MaxFileSize:    cfg.Server.MaxFileSize,
		MaxFiles:       cfg.Server.MaxFiles,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Production:     cfg.Server.Production(),
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepLoop(sweepCtx, cfg.Workspace)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("environment", cfg.Server.Environment).
			Str("ghostscript", gs.Binary()).
			Str("raster_backend", cfg.Tools.RasterBackend).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown did not finish cleanly")
	}
	log.Info().Msg("shutdown complete")
}

// sweepLoop removes workspaces left behind by crashed requests.
func sweepLoop(ctx context.Context, cfg cfgpkg.WorkspaceConfig) {
	if cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := workspace.SweepStale(cfg.Root, cfg.StaleAfter); n > 0 {
				log.Info().Int("removed", n).Msg("removed stale workspaces")
			}
		}
	}
}
