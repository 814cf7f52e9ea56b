package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inspectra/config"
	"inspectra/internal/api"
	"inspectra/internal/database"
	"inspectra/internal/events"
	"inspectra/internal/geocoding"
	"inspectra/internal/metrics"
	"inspectra/internal/models"
	"inspectra/internal/processor"
	"inspectra/internal/queue"
	"inspectra/internal/risk"
	"inspectra/internal/scheduler"
	"inspectra/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Scoring tables are validated once; a broken table stops the service
	scoring, err := config.LoadScoringTables(cfg.Scoring.TablesPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load scoring tables")
	}
	tables, err := risk.NewTables(scoring.Defects, scoring.RoomImportance, scoring.PropertyLayouts)
	if err != nil {
		logger.WithError(err).Fatal("Invalid scoring tables")
	}
	engine := risk.NewEngine(tables, logger)
	logger.WithFields(logrus.Fields{
		"defect_types":   tables.Catalog.Len(),
		"property_types": scoring.PropertyTypes(),
	}).Info("Scoring tables loaded")

	// Initialize database
	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)
	db, err := database.NewDatabase(cfg.Server.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	m := metrics.NewMetrics()

	publisher := events.NewPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Error("Failed to close event publisher")
		}
	}()

	telegramService := telegram.NewService(logger, cfg.Telegram.APIURL)
	telegramService.UpdateConfig(models.NewTelegramConfig(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	if !telegramService.Enabled() {
		logger.Info("Telegram credentials not set, alerts are disabled")
	}

	// Queue and batch processor
	inspectionQueue := queue.NewInspectionQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db, engine, inspectionQueue, cfg, logger)
	batchProcessor.SetPublisher(publisher)
	batchProcessor.SetNotifier(telegramService)
	batchProcessor.SetMetrics(m)
	batchProcessor.Start()

	sweeper := scheduler.NewScheduler(db, telegramService, cfg, logger)
	sweeper.Start()

	handler := api.NewHandler(db, engine, batchProcessor, inspectionQueue, cfg.BatchProcessing.MaxBatchSize, logger)
	handler.SetMetrics(m)
	if cfg.Geocoding.Enabled {
		handler.SetGeocoder(geocoding.NewGeocoder(logger, cfg.Geocoding.URL, cfg.Geocoding.CountryCode, cfg.Geocoding.CacheDir))
	}

	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), m.Middleware(), cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	api.SetupRoutes(router, handler, m)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	sweeper.Stop()
	batchProcessor.Stop()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
