package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/config"
	"github.com/JetsonAtWork/incident-triage/internal/geocoder"
	v1 "github.com/JetsonAtWork/incident-triage/internal/handler/http/v1"
	"github.com/JetsonAtWork/incident-triage/internal/observability"
	"github.com/JetsonAtWork/incident-triage/internal/reportform"
	"github.com/JetsonAtWork/incident-triage/internal/repository"
	"github.com/JetsonAtWork/incident-triage/internal/service"
	"github.com/JetsonAtWork/incident-triage/internal/viewport"
	"github.com/JetsonAtWork/incident-triage/pkg/logger"
	redisclient "github.com/JetsonAtWork/incident-triage/pkg/redis"
)

// @title Incident Triage API
// @version 1.0
// @description Emergency incident reporting and triage dashboard.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey StaffToken
// @in header
// @name X-Staff-Token
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	// Incident storage: one keyed entry, either a JSON file or a Redis key.
	var storage service.IncidentStorage
	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")
		storage = repository.NewRedisStorage(redisClient, cfg.StorageKey)
	default:
		storage = repository.NewFileStorage(cfg.StoragePath)
		log.WithField("path", cfg.StoragePath).Info("Using file storage")
	}

	incidentService := service.NewIncidentService(storage, log, metrics)
	incidentService.Load(ctx)

	geo := geocoder.NewCachedGeocoder(
		geocoder.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderMaxRetries, cfg.GeocoderBaseDelay, log, metrics),
		cfg.GeocoderCacheSize,
		metrics,
	)

	tracker := viewport.NewTracker()
	tracker.Refresh(incidentService.List(ctx))

	reports := reportform.NewManager(geo, log, clockwork.NewRealClock(), cfg.GeocoderMaxResults)

	handler := v1.NewHandler(incidentService, reports, tracker, log, cfg)

	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
