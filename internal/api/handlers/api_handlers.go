package handlers

import (
	"net/http"
	"strconv"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/ai"
	"nexsentri-go/internal/ingest"
	"nexsentri-go/internal/server/sse"
	"nexsentri-go/internal/store"
	"nexsentri-go/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// APIHandler behandelt API-Anfragen des Dashboards
type APIHandler struct {
	cfg       *config.Config
	pipeline  *ingest.Pipeline
	sampler   *telemetry.Sampler
	store     *store.Store
	ai        *ai.Service
	hub       *sse.Hub
	startedAt time.Time
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(cfg *config.Config, pipeline *ingest.Pipeline, sampler *telemetry.Sampler, st *store.Store, aiService *ai.Service, hub *sse.Hub) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		pipeline:  pipeline,
		sampler:   sampler,
		store:     st,
		ai:        aiService,
		hub:       hub,
		startedAt: time.Now(),
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Event-Endpunkte
	router.GET("/events", h.ListEvents)
	router.POST("/events/simulate", h.SimulateEvent)

	// Telemetrie-Endpunkte
	router.GET("/telemetry", h.GetTelemetry)

	// Konfigurations-Endpunkte
	router.GET("/config/camera", h.GetCameraConfig)
	router.PUT("/config/camera", h.SaveCameraConfig)
	router.GET("/config/webhook", h.GetWebhookConfig)
	router.PUT("/config/webhook", h.SaveWebhookConfig)
	router.GET("/config/cloud", h.GetCloudConfig)
	router.PUT("/config/cloud", h.SaveCloudConfig)
	router.GET("/config/history", h.ListSnapshots)
	router.POST("/config/history", h.CreateSnapshot)
	router.POST("/config/history/:version/restore", h.RestoreSnapshot)

	// Flow-Generierung
	router.GET("/flows/http", h.GetHTTPFlow)
	router.GET("/flows/mqtt", h.GetMQTTFlow)

	// AI-Endpunkte
	router.POST("/ai/chat", h.Chat)
	router.POST("/ai/analyze", h.AnalyzeEvent)

	// Video & Live-Updates
	router.GET("/stream", h.ProxyStream)
	router.GET("/sse", h.HandleSSE)

	// System-Endpunkte
	router.GET("/status", h.GetStatus)
}

// ListEvents liefert die aktuelle Ereignisliste, neueste zuerst
func (h *APIHandler) ListEvents(c *gin.Context) {
	events := h.pipeline.Events()

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  len(events),
	})
}

// SimulateEvent fügt ein synthetisches Ereignis über den regulären Merge-Pfad ein
func (h *APIHandler) SimulateEvent(c *gin.Context) {
	event := h.pipeline.SimulateEvent()
	c.JSON(http.StatusOK, gin.H{
		"message": "Simulated event inserted",
		"event":   event,
	})
}

// GetTelemetry liefert die aktuelle Messung und die rollierende Historie
func (h *APIHandler) GetTelemetry(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": h.sampler.Current(),
		"history": h.sampler.History(),
	})
}

// GetStatus liefert den Systemstatus für die Anzeige
func (h *APIHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mqtt_connected": h.pipeline.Connected(),
		"event_count":    len(h.pipeline.Events()),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"ai_enabled":     h.ai.Enabled(),
	})
}
