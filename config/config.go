package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Frigate   FrigateConfig   `mapstructure:"frigate"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	AI        AIConfig        `mapstructure:"ai"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig enthält Datenbankeinstellungen (SQLite)
type DBConfig struct {
	File string `mapstructure:"file"`
}

// FrigateConfig enthält die Verbindung zur Detection-Engine
type FrigateConfig struct {
	Host                 string `mapstructure:"host"`                   // Base URL, e.g. http://frigate:5000
	EventLimit           int    `mapstructure:"event_limit"`            // Events per snapshot fetch
	FetchIntervalSeconds int    `mapstructure:"fetch_interval_seconds"` // Baseline polling interval
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Broker         string `mapstructure:"broker"` // Hostname, or full URL (tcp://, ws://)
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	ClientIDPrefix string `mapstructure:"client_id_prefix"`
	Topic          string `mapstructure:"topic"`
}

// TelemetryConfig enthält die Einstellungen für den System-Sampler
type TelemetryConfig struct {
	Mode            string `mapstructure:"mode"` // "synthetic" oder "system"
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	StoragePath     string `mapstructure:"storage_path"` // Mount-Punkt für Disk-Statistiken
}

// AIConfig enthält die Einstellungen für den Generative-AI-Proxy
type AIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// CleanupConfig enthält Bereinigungseinstellungen für die Snapshot-Historie
type CleanupConfig struct {
	MaxSnapshots    int `mapstructure:"max_snapshots"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.AutomaticEnv()
	v.SetEnvPrefix("NEXSENTRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server-Standardwerte
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "/data")

	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/nexsentri.log")

	// DB-Standardwerte
	v.SetDefault("db.file", "/data/nexsentri.db")

	// Frigate-Standardwerte
	v.SetDefault("frigate.host", "http://localhost:5000")
	v.SetDefault("frigate.event_limit", 20)
	v.SetDefault("frigate.fetch_interval_seconds", 5)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id_prefix", "nexsentri")
	v.SetDefault("mqtt.topic", "frigate/events")

	// Telemetry-Standardwerte
	v.SetDefault("telemetry.mode", "synthetic")
	v.SetDefault("telemetry.interval_seconds", 2)
	v.SetDefault("telemetry.storage_path", "/")

	// AI-Standardwerte
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.model", "gemini-3-flash-preview")

	// Cleanup-Standardwerte
	v.SetDefault("cleanup.max_snapshots", 50)
	v.SetDefault("cleanup.interval_minutes", 60)
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		logDir := filepath.Dir(cfg.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
