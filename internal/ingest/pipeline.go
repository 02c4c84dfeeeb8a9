package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/core/models"
	"nexsentri-go/internal/integrations/frigate"
	"nexsentri-go/internal/integrations/mqtt"
	"nexsentri-go/internal/server/sse"

	log "github.com/sirupsen/logrus"
)

// MaxEvents begrenzt die Arbeitsliste. Der Cap gilt einheitlich für den
// Snapshot-Pfad, den Subscription-Pfad und den manuellen Trigger.
const MaxEvents = 50

// Notifier erhält neu eingefügte Ereignisse (z.B. Webhook-Weiterleitung)
type Notifier interface {
	NotifyEvent(event models.Event)
}

// Pipeline führt die beiden Ereignisquellen (REST-Snapshot und
// MQTT-Subscription) zu einer deduplizieren, begrenzten Liste zusammen.
// Sie besitzt die Liste exklusiv; Leser erhalten Kopien.
type Pipeline struct {
	cfg        *config.Config
	frigate    *frigate.Client
	mqttClient *mqtt.Client
	hub        *sse.Hub
	notifier   Notifier

	mu     sync.RWMutex
	events []models.Event

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// eventEnvelope ist die Hüllnachricht auf dem Event-Topic. Die Phase
// (new/update/end) wird nicht unterschieden: jede Nachricht ist ein Upsert.
type eventEnvelope struct {
	Type  string             `json:"type"`
	After *frigate.EventData `json:"after"`
}

// NewPipeline erstellt eine neue Ingestion-Pipeline
func NewPipeline(cfg *config.Config, frigateClient *frigate.Client, mqttClient *mqtt.Client, hub *sse.Hub, notifier Notifier) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		frigate:    frigateClient,
		mqttClient: mqttClient,
		hub:        hub,
		notifier:   notifier,
		events:     make([]models.Event, 0, MaxEvents),
		stopCh:     make(chan struct{}),
	}
}

// Start führt den initialen Snapshot-Fetch aus, startet das periodische
// Polling und öffnet die MQTT-Subscription.
func (p *Pipeline) Start() error {
	// Baseline sofort holen; Fehler sind eine stille Degradation
	p.refresh()

	p.wg.Add(1)
	go p.fetchLoop()

	if p.mqttClient != nil {
		p.mqttClient.RegisterHandler(p)
		if err := p.mqttClient.Start(); err != nil {
			// Der Client verbindet selbständig neu; das Polling bleibt als Fallback
			log.Warnf("MQTT connection failed, continuing with polling only: %v", err)
		}
	}

	log.Info("Event ingestion pipeline started")
	return nil
}

// Stop beendet Polling und Subscription deterministisch
func (p *Pipeline) Stop() {
	close(p.stopCh)
	p.wg.Wait()

	if p.mqttClient != nil {
		p.mqttClient.Stop()
	}

	log.Info("Event ingestion pipeline stopped")
}

// fetchLoop pollt die Event-API im festen Intervall als Basis-Aktualität,
// unabhängig vom Zustand der Subscription
func (p *Pipeline) fetchLoop() {
	defer p.wg.Done()

	interval := time.Duration(p.cfg.Frigate.FetchIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

// refresh ersetzt die Arbeitsliste vollständig durch den jüngsten Snapshot.
// Jeder Fehler lässt die bestehende Liste unberührt.
func (p *Pipeline) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := p.frigate.RecentEvents(ctx, p.cfg.Frigate.EventLimit)
	if err != nil {
		log.Debugf("Snapshot fetch failed, keeping current event list: %v", err)
		return
	}

	if len(events) > MaxEvents {
		events = events[:MaxEvents]
	}

	p.mu.Lock()
	p.events = events
	p.mu.Unlock()

	p.broadcastEvents()
}

// HandleMessage implementiert mqtt.MessageHandler. Fehlerhafte Payloads
// werden geloggt und verworfen, niemals weitergereicht.
func (p *Pipeline) HandleMessage(topic string, payload []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Warnf("Dropping malformed event payload on %s: %v", topic, err)
		return
	}

	event, ok := frigate.Normalize(p.frigate.Host(), envelope.After)
	if !ok {
		log.Debugf("Dropping event message without detection data (type=%s)", envelope.Type)
		return
	}

	p.upsert(event)
}

// upsert fügt ein Ereignis am Kopf ein oder ersetzt den bestehenden Eintrag
// mit gleicher ID an Ort und Stelle. Die Ordnung ist Einfüge-, nicht
// Zeitstempelordnung.
func (p *Pipeline) upsert(event models.Event) {
	inserted := false

	p.mu.Lock()
	idx := -1
	for i := range p.events {
		if p.events[i].ID == event.ID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		p.events[idx] = event
	} else {
		p.events = append([]models.Event{event}, p.events...)
		if len(p.events) > MaxEvents {
			p.events = p.events[:MaxEvents]
		}
		inserted = true
	}
	p.mu.Unlock()

	p.broadcastEvents()

	if inserted && p.notifier != nil {
		p.notifier.NotifyEvent(event)
	}
}

// SimulateEvent erzeugt ein synthetisches Personen-Ereignis (manueller
// Trigger des Dashboards) und fügt es über den regulären Merge-Pfad ein.
func (p *Pipeline) SimulateEvent() models.Event {
	now := time.Now()
	event := models.Event{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Label:     "person",
		Camera:    "front_cam",
		StartTime: float64(now.UnixMilli()) / 1000,
		Thumbnail: frigate.ThumbnailURL(p.frigate.Host(), strconv.FormatInt(now.UnixMilli(), 10)),
		HasClip:   true,
		Score:     0.88,
	}

	p.upsert(event)
	return event
}

// Events liefert eine Kopie der aktuellen Liste, neueste zuerst
func (p *Pipeline) Events() []models.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make([]models.Event, len(p.events))
	copy(snapshot, p.events)
	return snapshot
}

// Connected meldet den Subscription-Status. Nur Anzeige, keine Steuerung.
func (p *Pipeline) Connected() bool {
	return p.mqttClient != nil && p.mqttClient.IsConnected()
}

// broadcastEvents schiebt den aktuellen Stand an die SSE-Clients
func (p *Pipeline) broadcastEvents() {
	if p.hub == nil {
		return
	}
	p.hub.BroadcastUpdate("events", p.Events())
}
