package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event repräsentiert eine einzelne Erkennung der Detection-Engine.
// Die ID ist über alle Updates desselben physischen Ereignisses stabil.
type Event struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`  // z.B. 'person', 'car'
	Camera    string  `json:"camera"` // Quellkamera
	StartTime float64 `json:"start_time"`
	Thumbnail string  `json:"thumbnail"`
	HasClip   bool    `json:"has_clip"`
	Score     float64 `json:"score"` // Konfidenz in [0,1]
}

// TelemetrySample ist eine punktuelle Systemmessung
type TelemetrySample struct {
	CPUUsage     float64   `json:"cpu_usage"`     // Prozent
	MemoryUsage  float64   `json:"memory_usage"`  // MB
	Temperature  float64   `json:"temperature"`   // °C
	StorageUsed  float64   `json:"storage_used"`  // GB
	StorageTotal float64   `json:"storage_total"` // GB
	Timestamp    time.Time `json:"timestamp"`
}

// CameraConfig bestimmt die Videoquelle des Dashboards
type CameraConfig struct {
	Mode      string `json:"mode"` // "local" oder "stream"
	StreamURL string `json:"stream_url"`
}

// WebhookConfig steuert die Event-Weiterleitung an Node-RED
type WebhookConfig struct {
	URL             string `json:"url"`
	Enabled         bool   `json:"enabled"`
	NotifyOnPerson  bool   `json:"notify_on_person"`
	NotifyOnVehicle bool   `json:"notify_on_vehicle"`
}

// CloudConfig enthält Endpunkt und MQTT-Bridge-Parameter der Cloud-Synchronisierung
type CloudConfig struct {
	Enabled         bool   `json:"enabled"`
	BaseURL         string `json:"base_url"`
	Username        string `json:"username"`
	Password        string `json:"password,omitempty"`
	MQTTEnabled     bool   `json:"mqtt_enabled"`
	MQTTURL         string `json:"mqtt_url"`
	MQTTTopicPrefix string `json:"mqtt_topic_prefix"`
}

// AppState bündelt alle Konfigurationsobjekte für Snapshots
type AppState struct {
	Camera  CameraConfig  `json:"camera_config"`
	Webhook WebhookConfig `json:"webhook_config"`
	Cloud   CloudConfig   `json:"cloud_config"`
}

// --- Persistenzmodelle ---

// ConfigEntry speichert ein Konfigurationsobjekt unter einem festen Schlüssel
type ConfigEntry struct {
	gorm.Model
	Key   string         `gorm:"uniqueIndex;not null"` // z.B. 'camera_config'
	Value datatypes.JSON `gorm:"type:json"`
}

// ConfigSnapshot ist ein versionierter Eintrag der Konfigurationshistorie
type ConfigSnapshot struct {
	gorm.Model
	Version int            `gorm:"uniqueIndex;not null"`
	Note    string
	TakenAt time.Time      `gorm:"index"`
	Payload datatypes.JSON `gorm:"type:json"` // Serialisierter AppState
}
