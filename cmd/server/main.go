package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/ai"
	"nexsentri-go/internal/api/handlers"
	"nexsentri-go/internal/cleanup"
	"nexsentri-go/internal/database"
	"nexsentri-go/internal/ingest"
	"nexsentri-go/internal/integrations/frigate"
	"nexsentri-go/internal/integrations/mqtt"
	"nexsentri-go/internal/logger"
	"nexsentri-go/internal/notifier"
	"nexsentri-go/internal/server/sse"
	"nexsentri-go/internal/store"
	"nexsentri-go/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	configPath := defaultConfigPath
	if envPath := os.Getenv("NEXSENTRI_CONFIG"); envPath != "" {
		configPath = envPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	// Initialize database connection
	log.Info("Initializing database...")
	if err := database.Init(cfg.DB); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Info("Database initialization complete.")

	configStore := store.NewStore(database.DB)

	// Initialize snapshot history cleanup
	cleanupService := cleanup.NewService(configStore, cfg.Cleanup.MaxSnapshots,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute)
	if cleanupService != nil {
		cleanupService.StartBackgroundCleanup()
	}

	// SSE hub for live dashboard updates
	hub := sse.NewHub()
	go hub.Run()

	// Webhook notifier for event forwarding
	notifierService := notifier.NewService(configStore)

	// Event ingestion pipeline (REST snapshot + MQTT subscription)
	frigateClient := frigate.NewClient(cfg.Frigate)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(cfg.MQTT)
	} else {
		log.Info("MQTT is disabled in config.")
	}

	pipeline := ingest.NewPipeline(cfg, frigateClient, mqttClient, hub, notifierService)
	if err := pipeline.Start(); err != nil {
		log.Fatalf("Failed to start ingestion pipeline: %v", err)
	}

	// Telemetry sampler
	sampler := telemetry.NewSampler(cfg.Telemetry, hub)
	sampler.Start()

	// AI proxy
	aiService := ai.NewService(cfg.AI)

	// --- Setup Router ---
	router := gin.New()
	router.Use(gin.Recovery())

	// Open CORS for the browser dashboard
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	apiHandler := handlers.NewAPIHandler(cfg, pipeline, sampler, configStore, aiService, hub)
	apiHandler.RegisterRoutes(router.Group("/api"))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received, stopping services...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}

	// Tear down timers and the broker connection deterministically
	pipeline.Stop()
	sampler.Stop()
	if cleanupService != nil {
		cleanupService.StopBackgroundCleanup()
		log.Info("Cleanup service stopped.")
	}

	log.Info("Server stopped.")
}
