package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nexsentri-go/config"
	"nexsentri-go/internal/ai"
	"nexsentri-go/internal/core/models"
	"nexsentri-go/internal/ingest"
	"nexsentri-go/internal/integrations/frigate"
	"nexsentri-go/internal/server/sse"
	"nexsentri-go/internal/store"
	"nexsentri-go/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Frigate: config.FrigateConfig{
			Host:                 "http://127.0.0.1:1",
			EventLimit:           20,
			FetchIntervalSeconds: 5,
		},
		MQTT: config.MQTTConfig{
			Broker: "localhost",
			Port:   1883,
			Topic:  "frigate/events",
		},
		Telemetry: config.TelemetryConfig{
			Mode:            "synthetic",
			IntervalSeconds: 2,
		},
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlog.Default.LogMode(gormlog.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ConfigEntry{}, &models.ConfigSnapshot{}))

	hub := sse.NewHub()
	go hub.Run()

	pipeline := ingest.NewPipeline(cfg, frigate.NewClient(cfg.Frigate), nil, hub, nil)
	sampler := telemetry.NewSampler(cfg.Telemetry, hub)

	handler := NewAPIHandler(cfg, pipeline, sampler, store.NewStore(db), ai.NewService(cfg.AI), hub)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListEventsEmpty(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []models.Event `json:"events"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Events)
	assert.Zero(t, resp.Total)
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/events?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/events?limit=-1", "").Code)
}

func TestSimulateEventAppearsInList(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/events/simulate", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/events", "")
	var resp struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "person", resp.Events[0].Label)
	assert.Equal(t, "front_cam", resp.Events[0].Camera)
	assert.Equal(t, 0.88, resp.Events[0].Score)
}

func TestCameraConfigRoundtrip(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/config/camera", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cfg models.CameraConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "stream", cfg.Mode)

	w = doRequest(router, http.MethodPut, "/api/config/camera",
		`{"mode":"local","stream_url":"http://cam:8080/mjpeg"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/config/camera", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "http://cam:8080/mjpeg", cfg.StreamURL)
}

func TestCameraConfigRejectsUnknownMode(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/config/camera", `{"mode":"hybrid"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloudConfigMasksPassword(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/config/cloud",
		`{"enabled":true,"base_url":"https://cloud.example","username":"rig42","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cret")

	w = doRequest(router, http.MethodGet, "/api/config/cloud", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cfg models.CloudConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Empty(t, cfg.Password)
	assert.Equal(t, "rig42", cfg.Username)

	// Leeres Passwort beim Speichern behält das hinterlegte bei
	w = doRequest(router, http.MethodPut, "/api/config/cloud",
		`{"enabled":true,"base_url":"https://cloud.example","username":"rig42","password":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/config/history", `{"note":"check"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.ConfigSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Contains(t, string(snapshot.Payload), "s3cret")
}

func TestSnapshotHistoryAndRestore(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/config/webhook",
		`{"url":"http://old:1880/event","enabled":true,"notify_on_person":true,"notify_on_vehicle":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/config/history", `{"note":"v1"}`).Code)

	w = doRequest(router, http.MethodPut, "/api/config/webhook",
		`{"url":"http://new:1880/event","enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/config/history/1/restore", "").Code)

	w = doRequest(router, http.MethodGet, "/api/config/webhook", "")
	var cfg models.WebhookConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "http://old:1880/event", cfg.URL)
	assert.True(t, cfg.Enabled)

	w = doRequest(router, http.MethodGet, "/api/config/history", "")
	var history struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, 2, history.Total)
}

func TestRestoreUnknownVersionReturns404(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/config/history/99/restore", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlowEndpointsReturnDocuments(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/flows/http", "/api/flows/mqtt"} {
		w := doRequest(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp struct {
			Flow string `json:"flow"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		var nodes []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(resp.Flow), &nodes), path)
		assert.NotEmpty(t, nodes, path)
	}
}

func TestChatDegradesGracefullyWithoutAI(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/ai/chat", `{"message":"how is the system?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "neural network")
}

func TestChatRequiresMessage(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/ai/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyStreamConflictsInLocalMode(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/config/camera",
		`{"mode":"local","stream_url":"http://cam:8080/mjpeg"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/stream", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProxyStreamPassesUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte("frame-bytes"))
	}))
	defer upstream.Close()

	router := newTestRouter(t)
	w := doRequest(router, http.MethodPut, "/api/config/camera",
		`{"mode":"stream","stream_url":"`+upstream.URL+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", w.Header().Get("Content-Type"))
	assert.Equal(t, "frame-bytes", w.Body.String())
}

func TestTelemetryEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/telemetry", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Current models.TelemetrySample   `json:"current"`
		History []models.TelemetrySample `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MQTTConnected bool `json:"mqtt_connected"`
		EventCount    int  `json:"event_count"`
		AIEnabled     bool `json:"ai_enabled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.MQTTConnected)
	assert.Zero(t, resp.EventCount)
	assert.False(t, resp.AIEnabled)
}
