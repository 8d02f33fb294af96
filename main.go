package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shrink/auth"
	"shrink/config"
	"shrink/encoder"
	"shrink/history"
	"shrink/logger"
	"shrink/reducer"
	"shrink/routes"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides SHRINK_CONFIG)")
	issueToken := flag.Bool("issue-token", false, "print an access token signed with the configured secret and exit")
	tokenSubject := flag.String("token-subject", "owner", "subject of the issued token")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of the issued token, 0 for no expiry")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("SHRINK_CONFIG", *configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if *issueToken {
		token, err := auth.IssueToken(*tokenSubject, cfg.AuthIssuer, *tokenTTL, []byte(cfg.AuthSecret))
		if err != nil {
			logger.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if cfg.LogFile != "" {
		if err := logger.Init(cfg.LogFile, true); err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer logger.Close()
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)

	logger.Infof("Starting shrink %s", routes.Version())

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatalf("Failed to create data directories: %v", err)
	}

	logger.Debug("Registering image encoders")
	encoder.RegisterDefaults()

	var store *history.Store
	if cfg.History.Enabled {
		logger.Debug("Initializing history database")
		store, err = history.Open(cfg.HistoryDBPath())
		if err != nil {
			logger.Fatalf("Failed to initialize history store: %v", err)
		}
		defer store.Close()
		logger.Infof("History database opened at %s", cfg.HistoryDBPath())
	} else {
		logger.Info("History disabled")
	}

	if len(cfg.Sinks) > 0 {
		logger.Infof("Exporting results to %d sink(s)", len(cfg.Sinks))
	}
	if cfg.AuthSecret == "" {
		logger.Warn("No auth secret configured, reduce and history endpoints are open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if store != nil && cfg.History.RetentionDays > 0 {
		go cleanupRoutine(ctx, store, time.Duration(cfg.History.RetentionDays)*24*time.Hour)
	}

	service := reducer.NewService(cfg, store)
	if !service.VideoAvailable() {
		logger.Warnf("ffmpeg/ffprobe not found (%s, %s), video compression will fail", cfg.Video.FFmpegPath, cfg.Video.FFprobePath)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           routes.NewServer(cfg, service, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Infof("Shrink server listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed to start: %v", err)
	}
	logger.Info("Server stopped")
}

// cleanupRoutine drops history records older than maxAge once at startup and then every 24 hours.
func cleanupRoutine(ctx context.Context, store *history.Store, maxAge time.Duration) {
	logger.Infof("Cleanup routine started, retention %v", maxAge)
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		n, err := store.CleanupOldRecords(maxAge)
		if err != nil {
			logger.Errorf("Failed to cleanup old history records: %v", err)
		} else {
			logger.Infof("Cleaned up %d old history records", n)
		}

		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
		}
	}
}
