package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/clip/internal/config"
	"github.com/MrSnakeDoc/clip/internal/httpserver"
	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/scheduler"
	"github.com/MrSnakeDoc/clip/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	core    *Core
	auditor *scheduler.FolderAuditor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the store early - fail fast if unavailable
	core, err := NewCore(context.Background(), cfg, loggerClient, nil)
	if err != nil {
		loggerClient.Errorf("Failed to initialize: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized", logger.String("store", cfg.Store))

	var auditor *scheduler.FolderAuditor
	if cfg.AuditInterval > 0 {
		auditor = scheduler.NewFolderAuditor(core.Cache, core.Prober, loggerClient, cfg.AuditInterval)
	} else {
		loggerClient.Info("folder audit disabled")
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.AllowedOrigins,
		RateBurst:      cfg.RateBurst,
		RatePerMin:     cfg.RatePerMin,
		Clipper:        core.Clipper,
		Cache:          core.Cache,
		StoreKind:      cfg.Store,
		Settings:       core.Settings,
	}

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		server:  httpserver.New(cfg, loggerClient, d),
		core:    core,
		auditor: auditor,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting clip v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("clip %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.auditor != nil {
		if err := a.auditor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start folder auditor: %w", err)
		}
		a.logger.Info("folder auditor started",
			logger.Duration("interval", a.cfg.AuditInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.auditor != nil {
		a.auditor.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.core.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
	} else {
		a.logger.Info("✅ Store closed cleanly")
	}

	a.logger.Info("✅ clip stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
