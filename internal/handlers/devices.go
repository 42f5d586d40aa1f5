package handlers

import (
	"net/http"

	"home_dispatch/internal/models"
	"home_dispatch/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "ok"
	statusDeleted  = "deleted"
	statusReloaded = "reloaded"

	errInvalidBodyPref = "invalid body: "
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	devices := h.services.Catalog.ListDevices(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// @Summary      Get device
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  models.Device
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id} [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	d, err := h.services.Catalog.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, "failed to load device", "device_get_failed", err, "device_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Create device
// @Description  The catalog document is validated and rewritten; on failure the current catalog stays active.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      models.Device  true  "Device"
// @Success      201   {object}  models.Device
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]interface{}  "error, problems"
// @Router       /api/v1/devices [post]
// @Security     BearerAuth
func (h *Handler) createDevice(c *gin.Context) {
	var d models.Device
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	out, err := h.services.Catalog.CreateDevice(c.Request.Context(), d)
	if err != nil {
		h.respondServiceError(c, "failed to create device", "device_create_failed", err, "device_id", d.ID)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// @Summary      Update device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Device id"
// @Param        body  body      models.Device  true  "Device"
// @Success      200   {object}  models.Device
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]interface{}  "error, problems"
// @Router       /api/v1/devices/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateDevice(c *gin.Context) {
	var d models.Device
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	out, err := h.services.Catalog.UpdateDevice(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		h.respondServiceError(c, "failed to update device", "device_update_failed", err, "device_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Delete device
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteDevice(c *gin.Context) {
	if err := h.services.Catalog.DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, "failed to delete device", "device_delete_failed", err, "device_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted})
}

// ExecuteActionRequest is the optional body of a panel button press.
type ExecuteActionRequest struct {
	// Trigger source. Allowed: panel, voice, scheduler. Defaults to panel.
	Source string `json:"source,omitempty" example:"panel"`
}

// @Summary      Execute a device action
// @Description  Dispatches a known (device, action) pair without text resolution.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id         path      string                true   "Device id"
// @Param        action_id  path      string                true   "Action id"
// @Param        body       body      ExecuteActionRequest  false  "Source"
// @Success      200        {object}  InstructionResponse
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      422        {object}  map[string]string
// @Router       /api/v1/devices/{id}/actions/{action_id}/execute [post]
// @Security     BearerAuth
func (h *Handler) executeAction(c *gin.Context) {
	var req ExecuteActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	rec, err := h.services.Instructions.ExecuteAction(c.Request.Context(), service.ActionRequest{
		DeviceID: c.Param("id"),
		ActionID: c.Param("action_id"),
		Source:   models.Source(req.Source),
	})
	if err != nil {
		h.respondServiceError(c, "failed to execute action", "action_execute_failed", err,
			"device_id", c.Param("id"), "action_id", c.Param("action_id"))
		return
	}
	c.JSON(http.StatusOK, newInstructionResponse(rec))
}
