package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// HandleHealthGin reports whether the database answers a ping.
func (s *Server) HandleHealthGin(c *gin.Context) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			s.Log.WithError(err).Error("health check: database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": s.now().UTC()})
}
