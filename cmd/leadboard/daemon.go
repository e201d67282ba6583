package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/leadboard/internal/api"
	"github.com/fentz26/leadboard/internal/audit"
	"github.com/fentz26/leadboard/internal/cache"
	"github.com/fentz26/leadboard/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listenAddr string
	dbPath     string
	redisAddr  string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the lead store daemon",
	Long:  `Starts the daemon which serves the lead store HTTP API used by the board and CLI.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (default from config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	daemonCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the list cache (default from config, empty disables)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.Daemon.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.Daemon.DBPath = dbPath
	}
	if redisAddr != "" {
		cfg.Daemon.Redis.Addr = redisAddr
	}
	log.Info("starting leadboard daemon", zap.String("db", cfg.Daemon.DBPath))

	// Initialize store
	s, err := store.New(cfg.Daemon.DBPath)
	if err != nil {
		return err
	}

	// The list cache is optional; without Redis every read goes to SQLite.
	var listCache cache.ListCache = cache.Nop{}
	if addr := cfg.Daemon.Redis.Addr; addr != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, addr, cfg.Daemon.Redis.Password, cfg.Daemon.Redis.DB, cfg.Daemon.CacheTTL)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, list cache disabled", zap.String("addr", addr), zap.Error(err))
		} else {
			defer rc.Close()
			listCache = rc
			log.Info("list cache enabled", zap.String("addr", addr), zap.Duration("ttl", cfg.Daemon.CacheTTL))
		}
	}

	// Create service and server
	recorder := audit.NewRecorder(s, log.Named("audit"))
	service := api.NewService(s, recorder, listCache, log.Named("service"))
	server := api.NewServer(service, cfg.Daemon.Listen, log.Named("http"))

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("closing database connection")
	if err := s.Close(); err != nil {
		log.Error("database close error", zap.Error(err))
	}

	log.Info("shutdown complete")
	return nil
}
