package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexsentri-go/config"
	"nexsentri-go/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(baseURL string) *Service {
	return NewService(config.AIConfig{
		Enabled: true,
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gemini-3-flash-preview",
	})
}

func generateReply(text string) string {
	resp := generateResponse{}
	resp.Candidates = []struct {
		Content content `json:"content"`
	}{{Content: content{Parts: []part{{Text: text}}}}}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestChatReturnsModelReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-3-flash-preview:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, "NexSentri AI")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(generateReply("All systems nominal.")))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	assert.Equal(t, "All systems nominal.", service.Chat("status?", "CPU: 20%"))
}

func TestChatDegradesOnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := newTestService(server.URL)
	assert.Equal(t, chatFailureReply, service.Chat("status?", ""))
}

func TestChatDegradesOnEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	assert.Equal(t, chatEmptyReply, service.Chat("status?", ""))
}

func TestAnalyzeEventIncludesDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, "person")
		assert.Contains(t, prompt, "88.0%")
		assert.Contains(t, prompt, "front_cam")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(generateReply("Routine detection.")))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	reply := service.AnalyzeEvent(models.Event{
		ID:        "ev-1",
		Label:     "person",
		Camera:    "front_cam",
		Score:     0.88,
		StartTime: 1700000000,
	})
	assert.Equal(t, "Routine detection.", reply)
}

func TestAnalyzeEventDegradesOnFailure(t *testing.T) {
	service := newTestService("http://127.0.0.1:1")
	assert.Equal(t, analyzeFailureReply, service.AnalyzeEvent(models.Event{ID: "ev-1"}))
}

func TestDisabledWithoutKey(t *testing.T) {
	service := NewService(config.AIConfig{Enabled: true})
	assert.False(t, service.Enabled())

	service = NewService(config.AIConfig{Enabled: false, APIKey: "k"})
	assert.False(t, service.Enabled())
}
