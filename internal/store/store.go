package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nexsentri-go/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Feste Schlüssel der persistierten Konfigurationsobjekte
const (
	KeyCameraConfig  = "camera_config"
	KeyWebhookConfig = "webhook_config"
	KeyCloudConfig   = "cloud_config"
)

// ErrSnapshotNotFound wird geliefert, wenn eine Version nicht existiert
var ErrSnapshotNotFound = errors.New("config snapshot not found")

// Store verwaltet die benutzereditierbaren Konfigurationsobjekte und die
// versionierte Snapshot-Historie. Die Pipeline und der Stream-Proxy lesen
// nur; geschrieben wird ausschließlich über die Save-Operationen.
type Store struct {
	db *gorm.DB
}

// NewStore erstellt einen neuen Konfigurations-Store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CameraConfig liefert die Kamera-Konfiguration oder ihre Standardwerte
func (s *Store) CameraConfig() (models.CameraConfig, error) {
	cfg := models.CameraConfig{
		Mode:      "stream", // Default to stream to avoid hardware lock with the detection engine
		StreamURL: "http://localhost:1880/stream",
	}
	err := s.getEntry(KeyCameraConfig, &cfg)
	return cfg, err
}

// SaveCameraConfig ersetzt und persistiert die Kamera-Konfiguration
func (s *Store) SaveCameraConfig(cfg models.CameraConfig) error {
	return s.putEntry(KeyCameraConfig, cfg)
}

// WebhookConfig liefert die Webhook-Konfiguration oder ihre Standardwerte
func (s *Store) WebhookConfig() (models.WebhookConfig, error) {
	cfg := models.WebhookConfig{
		URL:             "http://localhost:1880/event",
		Enabled:         false,
		NotifyOnPerson:  true,
		NotifyOnVehicle: true,
	}
	err := s.getEntry(KeyWebhookConfig, &cfg)
	return cfg, err
}

// SaveWebhookConfig ersetzt und persistiert die Webhook-Konfiguration
func (s *Store) SaveWebhookConfig(cfg models.WebhookConfig) error {
	return s.putEntry(KeyWebhookConfig, cfg)
}

// CloudConfig liefert die Cloud-Konfiguration oder ihre Standardwerte
func (s *Store) CloudConfig() (models.CloudConfig, error) {
	cfg := models.CloudConfig{
		MQTTTopicPrefix: "nexsentri",
	}
	err := s.getEntry(KeyCloudConfig, &cfg)
	return cfg, err
}

// SaveCloudConfig ersetzt und persistiert die Cloud-Konfiguration
func (s *Store) SaveCloudConfig(cfg models.CloudConfig) error {
	return s.putEntry(KeyCloudConfig, cfg)
}

// AppState bündelt den aktuellen Stand aller Konfigurationsobjekte
func (s *Store) AppState() (models.AppState, error) {
	var state models.AppState
	var err error

	if state.Camera, err = s.CameraConfig(); err != nil {
		return state, err
	}
	if state.Webhook, err = s.WebhookConfig(); err != nil {
		return state, err
	}
	if state.Cloud, err = s.CloudConfig(); err != nil {
		return state, err
	}

	return state, nil
}

// Snapshot hängt den aktuellen Konfigurationsstand als neue Version an die
// Historie an
func (s *Store) Snapshot(note string) (models.ConfigSnapshot, error) {
	state, err := s.AppState()
	if err != nil {
		return models.ConfigSnapshot{}, err
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return models.ConfigSnapshot{}, fmt.Errorf("failed to marshal app state: %w", err)
	}

	var maxVersion int
	if err := s.db.Model(&models.ConfigSnapshot{}).
		Select("COALESCE(MAX(version), 0)").Scan(&maxVersion).Error; err != nil {
		return models.ConfigSnapshot{}, fmt.Errorf("failed to determine snapshot version: %w", err)
	}

	snapshot := models.ConfigSnapshot{
		Version: maxVersion + 1,
		Note:    note,
		TakenAt: time.Now(),
		Payload: datatypes.JSON(payload),
	}

	if err := s.db.Create(&snapshot).Error; err != nil {
		return models.ConfigSnapshot{}, fmt.Errorf("failed to store snapshot: %w", err)
	}

	log.Infof("Stored config snapshot v%d (%s)", snapshot.Version, note)
	return snapshot, nil
}

// History liefert die Snapshot-Historie, neueste Version zuerst
func (s *Store) History() ([]models.ConfigSnapshot, error) {
	var snapshots []models.ConfigSnapshot
	if err := s.db.Order("version DESC").Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}
	return snapshots, nil
}

// Restore setzt alle Konfigurationsobjekte auf den Stand der angegebenen
// Version zurück und hängt den wiederhergestellten Stand als neue Version an
func (s *Store) Restore(version int) (models.ConfigSnapshot, error) {
	var snapshot models.ConfigSnapshot
	result := s.db.Where("version = ?", version).First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.ConfigSnapshot{}, ErrSnapshotNotFound
		}
		return models.ConfigSnapshot{}, result.Error
	}

	var state models.AppState
	if err := json.Unmarshal(snapshot.Payload, &state); err != nil {
		return models.ConfigSnapshot{}, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}

	if err := s.SaveCameraConfig(state.Camera); err != nil {
		return models.ConfigSnapshot{}, err
	}
	if err := s.SaveWebhookConfig(state.Webhook); err != nil {
		return models.ConfigSnapshot{}, err
	}
	if err := s.SaveCloudConfig(state.Cloud); err != nil {
		return models.ConfigSnapshot{}, err
	}

	return s.Snapshot(fmt.Sprintf("Restored from v%d", version))
}

// PruneSnapshots entfernt die ältesten Versionen jenseits von keep.
// Liefert die Anzahl gelöschter Einträge.
func (s *Store) PruneSnapshots(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	var cutoff int
	subquery := s.db.Model(&models.ConfigSnapshot{}).
		Select("version").Order("version DESC").Limit(1).Offset(keep - 1)
	if err := subquery.Scan(&cutoff).Error; err != nil {
		return 0, fmt.Errorf("failed to determine prune cutoff: %w", err)
	}
	if cutoff == 0 {
		return 0, nil // Historie kleiner als das Fenster
	}

	result := s.db.Unscoped().Where("version < ?", cutoff).Delete(&models.ConfigSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// getEntry lädt einen Eintrag; fehlt er, bleibt out unverändert (Defaults)
func (s *Store) getEntry(key string, out interface{}) error {
	var entry models.ConfigEntry
	result := s.db.Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	}

	if err := json.Unmarshal(entry.Value, out); err != nil {
		return fmt.Errorf("failed to decode config entry %s: %w", key, err)
	}
	return nil
}

// putEntry ersetzt den Wert unter einem festen Schlüssel
func (s *Store) putEntry(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal config entry %s: %w", key, err)
	}

	var entry models.ConfigEntry
	result := s.db.Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		entry = models.ConfigEntry{Key: key, Value: datatypes.JSON(payload)}
		return s.db.Create(&entry).Error
	}

	entry.Value = datatypes.JSON(payload)
	return s.db.Save(&entry).Error
}
