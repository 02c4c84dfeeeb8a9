package notifier

import (
	"time"

	"nexsentri-go/internal/core/models"
	"nexsentri-go/internal/store"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Service leitet neu erkannte Ereignisse als JSON an den konfigurierten
// Node-RED-Webhook weiter. Fehlschläge werden geloggt und verworfen; die
// Pipeline wird nie blockiert oder gestört.
type Service struct {
	store  *store.Store
	client *resty.Client
}

// NewService erstellt einen neuen Webhook-Notifier
func NewService(st *store.Store) *Service {
	return &Service{
		store:  st,
		client: resty.New().SetTimeout(5 * time.Second),
	}
}

// NotifyEvent implementiert ingest.Notifier. Die Zustellung läuft asynchron.
func (s *Service) NotifyEvent(event models.Event) {
	cfg, err := s.store.WebhookConfig()
	if err != nil {
		log.Warnf("Webhook config unavailable, skipping notification: %v", err)
		return
	}

	if !cfg.Enabled || cfg.URL == "" {
		return
	}

	if !labelEnabled(cfg, event.Label) {
		log.Debugf("Webhook notification suppressed for label %q", event.Label)
		return
	}

	go s.deliver(cfg.URL, event)
}

// deliver stellt das Ereignis per HTTP POST zu
func (s *Service) deliver(url string, event models.Event) {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(url)
	if err != nil {
		log.Warnf("Webhook delivery to %s failed: %v", url, err)
		return
	}
	if resp.IsError() {
		log.Warnf("Webhook delivery to %s returned status %d", url, resp.StatusCode())
		return
	}

	log.Debugf("Forwarded event %s to webhook", event.ID)
}

// labelEnabled prüft die Label-Schalter; unbekannte Labels werden weitergeleitet
func labelEnabled(cfg models.WebhookConfig, label string) bool {
	switch label {
	case "person":
		return cfg.NotifyOnPerson
	case "car", "truck", "motorcycle", "bicycle":
		return cfg.NotifyOnVehicle
	default:
		return true
	}
}
