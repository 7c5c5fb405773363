package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// requestID echoes the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// mutated invalidates the user's snapshot and records the change in the
// activity log.
func (a *api) mutated(c *gin.Context, userID int64, event string) {
	a.snapshots.Invalidate(userID)
	a.store.LogEvent(c.Request.Context(), userID, event)
}
