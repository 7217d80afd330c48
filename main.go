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

	"go.uber.org/zap"

	"futures-trader/internal/api"
	"futures-trader/internal/trading"
	"futures-trader/pkg/binance"
	"futures-trader/pkg/config"
	"futures-trader/pkg/db"
	"futures-trader/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.LogFile != "" {
		log, err = logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
	} else {
		log, err = logging.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting futures-trader",
		zap.String("port", cfg.Port),
		zap.String("base_url", cfg.BinanceBaseURL),
		zap.Bool("credentials", cfg.HasCredentials()),
	)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatal("database migrations failed", zap.Error(err))
	}

	client := binance.NewClient(binance.Config{
		APIKey:      cfg.BinanceAPIKey,
		APISecret:   cfg.BinanceAPISecret,
		BaseURL:     cfg.BinanceBaseURL,
		RecvWindow:  cfg.RecvWindowMs,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log.Named("binance"),
	})

	// Best effort clock sync before serving traffic.
	syncCtx, cancelSync := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := client.ServerTime(syncCtx); err != nil {
		log.Warn("server time sync failed", zap.Error(err))
	}
	cancelSync()

	manager := trading.NewManager(client, log.Named("trading"))
	server := api.NewServer(database, manager, cfg.JWTSecret, log.Named("api"))

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("stopped")
}
