package handlers

import (
	"fmt"
	"io"
	"net/http"

	"nexsentri-go/internal/server/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// streamClient ohne Gesamt-Timeout: MJPEG-Streams laufen beliebig lange,
// die Lebensdauer steuert der Request-Context.
var streamClient = &http.Client{}

// ProxyStream reicht den konfigurierten MJPEG-Stream als Byte-Passthrough
// durch. Im 'local'-Modus greift der Browser selbst auf das Gerät zu.
func (h *APIHandler) ProxyStream(c *gin.Context) {
	camCfg, err := h.store.CameraConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load camera config"})
		return
	}

	if camCfg.Mode != "stream" {
		c.JSON(http.StatusConflict, gin.H{
			"error": "camera is in local capture mode; switch the camera source to 'stream' to use the proxy",
		})
		return
	}

	if camCfg.StreamURL == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no stream URL configured"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, camCfg.StreamURL, nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid stream URL"})
		return
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		log.Warnf("Stream proxy to %s failed: %v", camCfg.StreamURL, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream stream unavailable"})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "multipart/x-mixed-replace"
	}

	c.Status(resp.StatusCode)
	c.Header("Content-Type", contentType)

	// Bytes durchreichen, bis Upstream oder Client die Verbindung schließt
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Debugf("Stream proxy ended: %v", err)
	}
}

// HandleSSE hängt den Client an den Broadcast-Hub und schiebt jede
// Zustandsänderung als SSE-Nachricht
func (h *APIHandler) HandleSSE(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	client := make(sse.Client, 10)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case message, ok := <-client:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", message)
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
