package gate

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// LogAppender receives access entries.
type LogAppender interface {
	Append(schema.Access) error
}

// Recorder returns middleware that appends one access entry after every
// request for which a token was resolved, carrying the final status code.
// Append failures are logged and never reach the client.
func Recorder(logs LogAppender, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		token, ok := TokenFromContext(c)
		if !ok {
			return
		}

		entry := schema.Access{
			TokenID:   token.ID,
			IP:        c.ClientIP(),
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			Status:    c.Writer.Status(),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := logs.Append(entry); err != nil {
			l.Error("failed to record access", "token", token.ID, "path", entry.Path, "error", err)
		}
	}
}
