package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"nexsentri-go/internal/core/models"
	"nexsentri-go/internal/integrations/nodered"
	"nexsentri-go/internal/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetCameraConfig liefert die Kamera-Konfiguration
func (h *APIHandler) GetCameraConfig(c *gin.Context) {
	cfg, err := h.store.CameraConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load camera config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SaveCameraConfig ersetzt die Kamera-Konfiguration
func (h *APIHandler) SaveCameraConfig(c *gin.Context) {
	var cfg models.CameraConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera config payload"})
		return
	}

	if cfg.Mode != "local" && cfg.Mode != "stream" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'local' or 'stream'"})
		return
	}

	if err := h.store.SaveCameraConfig(cfg); err != nil {
		log.Errorf("Failed to save camera config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save camera config"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GetWebhookConfig liefert die Webhook-Konfiguration
func (h *APIHandler) GetWebhookConfig(c *gin.Context) {
	cfg, err := h.store.WebhookConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load webhook config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SaveWebhookConfig ersetzt die Webhook-Konfiguration
func (h *APIHandler) SaveWebhookConfig(c *gin.Context) {
	var cfg models.WebhookConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook config payload"})
		return
	}

	if err := h.store.SaveWebhookConfig(cfg); err != nil {
		log.Errorf("Failed to save webhook config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save webhook config"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GetCloudConfig liefert die Cloud-Konfiguration (Passwort maskiert)
func (h *APIHandler) GetCloudConfig(c *gin.Context) {
	cfg, err := h.store.CloudConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cloud config"})
		return
	}

	cfg.Password = ""
	c.JSON(http.StatusOK, cfg)
}

// SaveCloudConfig ersetzt die Cloud-Konfiguration. Ein leeres Passwort
// behält das gespeicherte bei.
func (h *APIHandler) SaveCloudConfig(c *gin.Context) {
	var cfg models.CloudConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cloud config payload"})
		return
	}

	if cfg.Password == "" {
		current, err := h.store.CloudConfig()
		if err == nil {
			cfg.Password = current.Password
		}
	}

	if err := h.store.SaveCloudConfig(cfg); err != nil {
		log.Errorf("Failed to save cloud config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cloud config"})
		return
	}

	cfg.Password = ""
	c.JSON(http.StatusOK, cfg)
}

// ListSnapshots liefert die Konfigurationshistorie, neueste Version zuerst
func (h *APIHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.store.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshot history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history": snapshots,
		"total":   len(snapshots),
	})
}

// CreateSnapshot hängt den aktuellen Konfigurationsstand an die Historie an
func (h *APIHandler) CreateSnapshot(c *gin.Context) {
	var body struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot payload"})
		return
	}

	snapshot, err := h.store.Snapshot(body.Note)
	if err != nil {
		log.Errorf("Failed to create config snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create snapshot"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// RestoreSnapshot stellt eine frühere Version wieder her
func (h *APIHandler) RestoreSnapshot(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	snapshot, err := h.store.Restore(version)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snapshot version not found"})
			return
		}
		log.Errorf("Failed to restore snapshot v%d: %v", version, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore snapshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Configuration restored",
		"snapshot": snapshot,
	})
}

// GetHTTPFlow generiert den HTTP-Forwarding-Flow aus der aktuellen Konfiguration
func (h *APIHandler) GetHTTPFlow(c *gin.Context) {
	webhook, err := h.store.WebhookConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load webhook config"})
		return
	}
	cloud, err := h.store.CloudConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cloud config"})
		return
	}

	flow, err := nodered.HTTPFlow(webhook, cloud)
	if err != nil {
		log.Errorf("Failed to generate HTTP flow: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate flow"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flow": flow})
}

// GetMQTTFlow generiert den MQTT-Bridge-Flow aus der aktuellen Konfiguration
func (h *APIHandler) GetMQTTFlow(c *gin.Context) {
	cloud, err := h.store.CloudConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cloud config"})
		return
	}

	flow, err := nodered.MQTTFlow(cloud, h.cfg.MQTT.Broker, h.cfg.MQTT.Topic)
	if err != nil {
		log.Errorf("Failed to generate MQTT flow: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate flow"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flow": flow})
}
