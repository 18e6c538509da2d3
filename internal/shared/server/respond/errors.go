package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/telemetry"
)

// ErrorBody is the error object every handler returns.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts with the standard envelope. Client errors log at warn,
// server errors at error.
func Error(c *gin.Context, status int, code, message string, details any) {
	requestID := c.GetString("requestId")
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": requestID,
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if resumeID := c.GetString("resumeId"); resumeID != "" {
		fields["resume_id"] = resumeID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}
