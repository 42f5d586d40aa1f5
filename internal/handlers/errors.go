package handlers

import (
	"errors"
	"net/http"

	"home_dispatch/internal/catalog"
	"home_dispatch/internal/render"
	"home_dispatch/internal/repository"
	"home_dispatch/internal/schedule"
	"home_dispatch/internal/service"

	"github.com/gin-gonic/gin"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondServiceError maps service errors to HTTP codes. Client errors echo
// the error text; anything unrecognised is logged and hidden behind userMsg.
func (h *Handler) respondServiceError(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logAndJSONError(c, code, userMsg, logKey, err, kv...)
		return
	}
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Infow(logKey, fields...)
	}
	body := gin.H{"error": err.Error()}
	var le *catalog.LoadError
	if errors.As(err, &le) && len(le.Problems) > 0 {
		body["problems"] = le.Problems
	}
	c.JSON(code, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, schedule.ErrInvalidRecurrence),
		errors.Is(err, catalog.ErrInvalidIconName):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, catalog.ErrDeviceNotFound),
		errors.Is(err, catalog.ErrActionNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDeviceExists),
		errors.Is(err, repository.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, render.ErrTemplateResolution),
		errors.Is(err, catalog.ErrCatalogLoad):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
