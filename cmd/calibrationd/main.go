package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"calibration-tracker/config"
	"calibration-tracker/internal/api"
	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/db"
	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/notification"
	"calibration-tracker/internal/report"
	"calibration-tracker/internal/store"
	"calibration-tracker/internal/sweeper"
	"calibration-tracker/internal/tracking"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.L().Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logging.Init(cfg.Log)
	logger := logging.L()
	logger.Infof("configuration loaded from %s", configPath)

	loc, err := time.LoadLocation(cfg.Tracking.Timezone)
	if err != nil {
		logger.Fatalf("invalid tracking.timezone %q: %v", cfg.Tracking.Timezone, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.WithField("driver", cfg.Database.Driver).Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	opts := []tracking.Option{
		tracking.WithRecallAttempts(cfg.Tracking.RecallMaxAttempts),
		tracking.WithClock(func() time.Time { return time.Now().In(loc) }),
	}
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		opts = append(opts, tracking.WithNotifier(pool))
		logger.WithField("workers", cfg.WorkerPool.Size).Info("pickup notifications enabled")
	} else {
		logger.Warn("VAPID keys are not configured; pickup notifications are disabled")
	}

	tracker := tracking.NewManager(appStore, opts...)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	handler := api.NewHandler(appStore, tracker, report.NewService(appStore), issuer, webpushOptions, loc)

	go sweeper.NewService(cfg.Sweeper, appStore).Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(cfg.Server, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	logger.Info("server gracefully stopped")
}
