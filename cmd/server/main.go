package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FlexiFlizz/sonphonor/internal/cache"
	"github.com/FlexiFlizz/sonphonor/internal/config"
	"github.com/FlexiFlizz/sonphonor/internal/db"
	applog "github.com/FlexiFlizz/sonphonor/internal/logger"
	"github.com/FlexiFlizz/sonphonor/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := applog.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, cfg.Migrations, logger)
	if err != nil {
		logger.Fatal("connexion base de données", zap.Error(err))
	}
	if *migrateOnlyFlag {
		logger.Info("migrations terminées, arrêt demandé")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		// Le cache est un canal annexe : l'API reste fonctionnelle sans lui.
		logger.Warn("cache indisponible", zap.Error(err))
	}

	handler := server.New(dbConn, rdb, cfg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("serveur démarré", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("serveur", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("signal d'arrêt reçu")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("arrêt du serveur", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("serveur arrêté proprement")
}
