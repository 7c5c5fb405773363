package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/view"
)

const heartbeatInterval = 15 * time.Second

// snapshotEvent tells the client a newer snapshot is available.
type snapshotEvent struct {
	GeneratedAt string   `json:"generatedAt"`
	Overview    view.KPI `json:"overview"`
	Alerts      int      `json:"alerts"`
}

// handleEvents streams a "snapshot" event whenever the user's snapshot is
// rebuilt, plus periodic heartbeats. The first snapshot is sent right after
// "connected".
func handleEvents(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		ctx := c.Request.Context()
		userID := auth.UserID(c)
		var lastSeen string

		push := func() bool {
			snap, err := a.snapshots.Get(ctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("dashboard: event snapshot", "user_id", userID, "error", err)
					writeSSE(c.Writer, "error", map[string]string{"error": err.Error()})
					c.Writer.Flush()
				}
				return false
			}
			if snap.GeneratedAt == lastSeen {
				return true
			}
			lastSeen = snap.GeneratedAt
			writeSSE(c.Writer, "snapshot", snapshotEvent{
				GeneratedAt: snap.GeneratedAt,
				Overview:    snap.Overview,
				Alerts:      len(snap.Alerts),
			})
			c.Writer.Flush()
			return true
		}
		if !push() {
			return
		}

		ticker := time.NewTicker(a.interval)
		heartbeat := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": dates.Stamp(a.clock.Now()),
				})
				c.Writer.Flush()
			case <-ticker.C:
				push()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
