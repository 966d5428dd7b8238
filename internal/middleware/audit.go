package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	reqidmiddleware "github.com/noah-isme/ipes-academic-api/pkg/middleware/requestid"
)

// Audit logs every state-changing request under the acting principal. Reads are not recorded.
// It must run after Capabilities so the principal is available.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !mutating(c.Request.Method) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", reqidmiddleware.Value(c)),
			zap.String("ip", c.ClientIP()),
		}
		if principal := PrincipalFrom(c); principal != nil {
			fields = append(fields,
				zap.String("actor_id", principal.UserID),
				zap.String("actor_role", string(principal.Role)),
			)
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			logger.Warn("audit: rejected", fields...)
			return
		}
		logger.Info("audit: applied", fields...)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
