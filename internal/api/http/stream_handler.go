package http

import (
	"net/http"
	"time"

	"jobboard/internal/domain"

	"github.com/gin-gonic/gin"
)

const streamBuffer = 16

// streamChanges handles GET /api/v1/jobs/stream. It relays job change events
// as server-sent events until the client goes away. Events are dropped when
// the client cannot keep up; clients refetch on any event anyway.
func (s *Server) streamChanges(c *gin.Context) {
	ctx := c.Request.Context()
	events := make(chan domain.ChangeEvent, streamBuffer)

	sub, err := s.gateway.SubscribeToJobChanges(ctx, func(ev domain.ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		renderFailure(c, domain.KindConnectivity, "change notifications are unavailable")
		return
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("failed to release change subscription", "error", err)
		}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.SSEvent("job_change", ev)
		case <-heartbeat.C:
			c.SSEvent("ping", s.now().UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}
