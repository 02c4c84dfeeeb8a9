package ai

import (
	"fmt"
	"time"

	"nexsentri-go/config"
	"nexsentri-go/internal/core/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Feste Degradations-Antworten: der Chat-Fluss darf nie mit einem Fehler
// abbrechen, egal was der externe Dienst tut.
const (
	analyzeFailureReply = "Failed to analyze event due to an API error."
	analyzeEmptyReply   = "No analysis generated."
	chatFailureReply    = "I'm having trouble connecting to my neural network right now."
	chatEmptyReply      = "I'm listening, but I didn't have a response."
)

// Service ist der Proxy zur Generative-AI-API (Gemini-kompatible REST-Schnittstelle)
type Service struct {
	cfg    config.AIConfig
	client *resty.Client
}

// generateRequest ist der Request-Body des generateContent-Endpunkts
type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse ist die reduzierte Antwortform des Endpunkts
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewService erstellt einen neuen AI-Proxy
func NewService(cfg config.AIConfig) *Service {
	return &Service{
		cfg: cfg,
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(30 * time.Second),
	}
}

// Enabled meldet, ob der Proxy nutzbar konfiguriert ist
func (s *Service) Enabled() bool {
	return s.cfg.Enabled && s.cfg.APIKey != ""
}

// AnalyzeEvent erstellt eine kurze Sicherheitseinschätzung zu einem Ereignis
func (s *Service) AnalyzeEvent(event models.Event) string {
	prompt := fmt.Sprintf(`You are an advanced security AI analyzing a dashcam event.

Event Details:
- Object Detected: %s
- Confidence Score: %.1f%%
- Time: %s
- Camera ID: %s

Please provide a brief, professional security assessment of this detection.
Is this typically a high-priority event for a vehicle dashcam?
What actions should the driver or system take?
Keep it under 50 words.`,
		event.Label,
		event.Score*100,
		time.Unix(int64(event.StartTime), 0).Format(time.RFC1123),
		event.Camera,
	)

	reply, err := s.generate(prompt, "")
	if err != nil {
		log.Errorf("AI analysis failed: %v", err)
		return analyzeFailureReply
	}
	if reply == "" {
		return analyzeEmptyReply
	}
	return reply
}

// Chat beantwortet eine freie Nutzerfrage im Systemkontext
func (s *Service) Chat(message, statsContext string) string {
	systemInstruction := fmt.Sprintf(`You are NexSentri AI, the intelligent voice of a Raspberry Pi 4 Dashcam system.
You help the user understand their system status, recent events, and configuration.
Current System Context: %s

Be concise, helpful, and tech-savvy.`, statsContext)

	reply, err := s.generate(message, systemInstruction)
	if err != nil {
		log.Errorf("AI chat failed: %v", err)
		return chatFailureReply
	}
	if reply == "" {
		return chatEmptyReply
	}
	return reply
}

// generate ruft den generateContent-Endpunkt auf
func (s *Service) generate(prompt, systemInstruction string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("ai service is not configured")
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}

	var result generateResponse
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", s.cfg.APIKey).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", s.cfg.Model))
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("generate request returned status %d", resp.StatusCode())
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
