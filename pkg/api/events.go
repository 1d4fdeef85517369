package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/manager"
	"github.com/gin-gonic/gin"
)

// streamEvents writes lifecycle events as newline-delimited JSON until the
// client goes away or the server shuts down. ?type=a,b limits the stream to
// those event types.
func (s *Server) streamEvents(c *gin.Context) {
	if s.broker == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Error:     "event stream not enabled",
			RequestID: c.GetString(requestIDKey),
		})
		return
	}

	filter, err := events.ParseTypes(c.Query("type"))
	if err != nil {
		s.writeError(c, &manager.InvalidParameterError{Field: "type", Message: err.Error()})
		return
	}

	sub := s.broker.Subscribe(filter...)
	defer s.broker.Unsubscribe(sub)

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	enc := json.NewEncoder(c.Writer)
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-s.streams.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				s.logger.Debug().Err(err).Msg("Event stream closed")
				return
			}
			c.Writer.Flush()
		}
	}
}
