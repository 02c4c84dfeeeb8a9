package frigate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Client verwaltet die Interaktion mit einer Frigate-kompatiblen Detection-Engine
type Client struct {
	config     config.FrigateConfig
	httpClient *http.Client
}

// EventData ist die rohe Ereignisform, wie sie von der REST-API und im
// MQTT-Envelope ('after') geliefert wird. Score-Felder sind Zeiger, damit
// zwischen 'fehlt' und '0' unterschieden werden kann.
type EventData struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Camera    string   `json:"camera"`
	StartTime float64  `json:"start_time"`
	HasClip   bool     `json:"has_clip"`
	TopScore  *float64 `json:"top_score,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Data      struct {
		Score *float64 `json:"score,omitempty"`
	} `json:"data"`
}

// NewClient erstellt einen neuen Frigate-Client
func NewClient(cfg config.FrigateConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Host liefert die konfigurierte Basis-URL der Detection-Engine
func (c *Client) Host() string {
	return c.config.Host
}

// RecentEvents holt die jüngsten Ereignisse über die Event-Query-API.
// Die Ergebnisse sind bereits normalisiert, neueste zuerst.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	url := fmt.Sprintf("%s/events?limit=%d", c.config.Host, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build event request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event query returned status %d", resp.StatusCode)
	}

	var raw []EventData
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode event response: %w", err)
	}

	events := make([]models.Event, 0, len(raw))
	for i := range raw {
		event, ok := Normalize(c.config.Host, &raw[i])
		if !ok {
			log.Debugf("Dropping event record without ID from REST response")
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// Normalize überführt ein rohes Ereignis in das interne Event-Modell.
// Liefert ok=false, wenn das Pflichtfeld 'id' fehlt.
func Normalize(host string, raw *EventData) (models.Event, bool) {
	if raw == nil || raw.ID == "" {
		return models.Event{}, false
	}

	return models.Event{
		ID:        raw.ID,
		Label:     raw.Label,
		Camera:    raw.Camera,
		StartTime: raw.StartTime,
		Thumbnail: ThumbnailURL(host, raw.ID),
		HasClip:   raw.HasClip,
		Score:     resolveScore(raw),
	}, true
}

// ThumbnailURL leitet die Thumbnail-Adresse deterministisch aus der Event-ID ab.
// Das Thumbnail wird nie separat abgefragt.
func ThumbnailURL(host, eventID string) string {
	return fmt.Sprintf("%s/events/%s/thumbnail.jpg", host, eventID)
}

// resolveScore wählt die Konfidenz: top_score, dann das verschachtelte bzw.
// flache score-Feld, sonst 0.
func resolveScore(raw *EventData) float64 {
	switch {
	case raw.TopScore != nil:
		return *raw.TopScore
	case raw.Data.Score != nil:
		return *raw.Data.Score
	case raw.Score != nil:
		return *raw.Score
	default:
		return 0
	}
}
