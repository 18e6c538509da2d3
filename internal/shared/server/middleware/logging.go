package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log.
const (
	ResumeIDKey      = "resumeId"
	PipelineStateKey = "pipelineState"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		resumeID, _ := c.Get(ResumeIDKey)
		pipelineState, _ := c.Get(PipelineStateKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":     RequestIDFromContext(c),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"duration_ms":    float64(latency.Microseconds()) / 1000.0,
			"user_id":        UserIDFromContext(c),
			"is_guest":       IsGuest(c),
			"resume_id":      resumeID,
			"pipeline_state": pipelineState,
			"client_ip":      c.ClientIP(),
			"user_agent":     c.Request.UserAgent(),
		})
	}
}
