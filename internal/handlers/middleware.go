package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ctxOperatorID is the gin context key holding the authenticated operator.
const ctxOperatorID = "operatorId"

// operatorMiddleware admits requests carrying a valid bearer token.
func (h *Handler) operatorMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	operatorID, err := h.services.ParseToken(strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxOperatorID, operatorID)
	c.Next()
}

// operatorID returns the authenticated operator, or 0 on public routes.
func operatorID(c *gin.Context) int {
	return c.GetInt(ctxOperatorID)
}

// requestLogger writes one structured line per request once it completes.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	if h.log == nil {
		return
	}

	kv := []interface{}{
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if id := operatorID(c); id != 0 {
		kv = append(kv, "operator_id", id)
	}
	switch {
	case c.Writer.Status() >= http.StatusInternalServerError:
		h.log.Errorw("http_request", kv...)
	case c.Writer.Status() >= http.StatusBadRequest:
		h.log.Infow("http_request", kv...)
	default:
		h.log.Debugw("http_request", kv...)
	}
}
