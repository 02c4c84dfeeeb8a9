package handlers

import (
	"fmt"
	"net/http"

	"nexsentri-go/internal/core/models"

	"github.com/gin-gonic/gin"
)

// Chat beantwortet eine Nutzerfrage mit dem aktuellen Systemkontext.
// Fehler des externen Dienstes degradieren zu einer festen Antwort und
// liefern daher immer Status 200.
func (h *APIHandler) Chat(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	stats := h.sampler.Current()
	statsContext := fmt.Sprintf("CPU: %.1f%%, Memory: %.0f MB, Temperature: %.1f°C, Events tracked: %d, MQTT connected: %t",
		stats.CPUUsage, stats.MemoryUsage, stats.Temperature, len(h.pipeline.Events()), h.pipeline.Connected())

	c.JSON(http.StatusOK, gin.H{
		"reply": h.ai.Chat(body.Message, statsContext),
	})
}

// AnalyzeEvent erstellt eine Sicherheitseinschätzung zu einem Ereignis
func (h *APIHandler) AnalyzeEvent(c *gin.Context) {
	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil || event.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event payload with id is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis": h.ai.AnalyzeEvent(event),
	})
}
