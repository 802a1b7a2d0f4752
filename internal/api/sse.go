package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const heartbeatFrame = ": heartbeat\n\n"

// StreamProgress godoc
// @Summary Stream the progress of a sync run
// @Description Server-Sent Events. Each frame is "data: <json>" where the JSON "event" field is progress, completed, failed or cancelled. The current snapshot is sent on connect and the stream ends after the terminal event.
// @Tags sync
// @Produce text/event-stream
// @Param runId path string true "Run ID"
// @Success 200 {object} models.ProgressEvent
// @Failure 404 {object} ErrorResponse
// @Router /sync/{runId}/progress [get]
func (h *Handler) StreamProgress(c *gin.Context) {
	runID := c.Param("runId")
	ctx := c.Request.Context()
	logger := h.logger.WithFields(logrus.Fields{
		"sync_id": runID,
		"action":  "stream_progress",
	})

	// Subscribe before reading the snapshot so no event between the two is lost.
	sub := h.sync.Subscribe(ctx, runID)
	run, err := h.sync.GetRun(ctx, runID)
	if err != nil {
		sub.Close()
		h.handleError(c, err, "Failed to get sync run")
		return
	}

	heartbeatInterval := h.config.SSEHeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = 15 * time.Second
	}
	maxLifetime := h.config.SSEMaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = 30 * time.Minute
	}
	heartbeat := time.NewTicker(heartbeatInterval)
	lifetime := time.NewTimer(maxLifetime)

	var once sync.Once
	cleanup := func(reason string) {
		once.Do(func() {
			heartbeat.Stop()
			lifetime.Stop()
			sub.Close()
			logger.WithField("reason", reason).Debug("Progress stream closed")
		})
	}
	defer cleanup("handler returned")

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	snapshot := models.SnapshotEvent(run, time.Now())
	if err := writeEvent(w, snapshot); err != nil {
		cleanup("write error")
		return
	}
	if snapshot.Event.Terminal() {
		cleanup("terminal event")
		return
	}

	for {
		select {
		case <-ctx.Done():
			cleanup("client disconnected")
			return
		case <-lifetime.C:
			cleanup("lifetime exceeded")
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, heartbeatFrame); err != nil {
				cleanup("write error")
				return
			}
			w.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				cleanup("subscription closed")
				return
			}
			if err := writeEvent(w, event); err != nil {
				cleanup("write error")
				return
			}
			if event.Event.Terminal() {
				cleanup("terminal event")
				return
			}
		}
	}
}

func writeEvent(w gin.ResponseWriter, event models.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
