package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mtbridge/configs"
	"mtbridge/internal/adapter"
	delivery "mtbridge/internal/delivery/http"
	"mtbridge/internal/discovery"
	custommiddleware "mtbridge/internal/middleware"
	"mtbridge/internal/repository"
	"mtbridge/internal/service"
	"mtbridge/pkg/metrics"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info(".env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Metrics registry
	collector := metrics.NewCollector()

	// Group cache backed by the catalogue files
	groupStore := repository.NewGroupStore(cfg.Storage.GroupFile, cfg.Storage.BaselineFile, log)
	groupStore.Load()
	log.WithField("groups", groupStore.Len()).Info("group cache ready")

	// Gateway to the native manager bridge sidecar
	gateway := adapter.NewManagerBridge(cfg.Bridge.URL, cfg.Bridge.Timeout, log)

	// Discovery engine and directory service
	engine := discovery.NewEngine(gateway, groupStore, cfg.Discovery.CandidateGroups, log, collector)
	directory := service.NewDirectoryService(gateway, engine, groupStore, cfg.Discovery, collector, log)

	// HTTP layer
	auth := custommiddleware.NewAPIKeyAuth(cfg.Security, log)
	e := echo.New()
	e.HideBanner = true
	delivery.SetupRoutes(e, &delivery.RouterConfig{
		DirectoryHandler: delivery.NewDirectoryHandler(directory),
		GroupHandler:     delivery.NewGroupHandler(directory),
		Auth:             auth,
		Metrics:          collector,
	})

	// Periodic session status report
	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc("*/5 * * * *", func() {
		log.WithField("connected", directory.Connected()).Info("session status")
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule status job")
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		log.WithField("addr", addr).Info("mtbridge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	if err := gateway.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("manager session close failed")
	}

	log.Info("server exited gracefully")
}
