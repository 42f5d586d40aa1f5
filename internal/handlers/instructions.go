package handlers

import (
	"fmt"
	"net/http"

	"home_dispatch/internal/models"

	"github.com/gin-gonic/gin"
)

// Instruction outcome statuses returned to the panel and voice front ends.
const (
	outcomeSuccess       = "success"
	outcomeFailed        = "failed"
	outcomeNotUnderstood = "not_understood"
)

// InstructionRequest is a free-text instruction from the panel or a voice front end.
type InstructionRequest struct {
	// Instruction text, e.g. "打开空调"
	Text string `json:"text" binding:"required" example:"打开空调"`
	// Trigger source. Allowed: panel, voice. Defaults to panel.
	Source string `json:"source,omitempty" example:"voice"`
}

// InstructionResponse reports the outcome of one trigger.
type InstructionResponse struct {
	// success | failed | not_understood
	Status  string                 `json:"status" example:"success"`
	Message string                 `json:"message"`
	Record  models.ExecutionRecord `json:"record"`
}

func newInstructionResponse(rec models.ExecutionRecord) InstructionResponse {
	resp := InstructionResponse{Record: rec}
	switch {
	case !rec.Resolution.Matched():
		resp.Status = outcomeNotUnderstood
		resp.Message = "instruction not understood"
	case rec.Dispatch != nil && rec.Dispatch.Success:
		resp.Status = outcomeSuccess
		resp.Message = fmt.Sprintf("triggered: %s - %s", rec.Resolution.DeviceName, rec.Resolution.ActionName)
	default:
		resp.Status = outcomeFailed
		detail := ""
		if rec.Dispatch != nil {
			detail = rec.Dispatch.Error
		}
		resp.Message = "action failed: " + detail
	}
	return resp
}

// @Summary      Submit instruction
// @Description  Resolves free text to a device action and dispatches it. Unresolved and failed instructions are still answered with 200.
// @Tags         instructions
// @Accept       json
// @Produce      json
// @Param        body  body      InstructionRequest  true  "Instruction"
// @Success      200   {object}  InstructionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/instructions [post]
// @Security     BearerAuth
func (h *Handler) submitInstruction(c *gin.Context) {
	var req InstructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	rec, err := h.services.Instructions.Submit(c.Request.Context(), req.Text, models.Source(req.Source))
	if err != nil {
		h.respondServiceError(c, "failed to process instruction", "instruction_failed", err,
			"source", req.Source, "operator_id", operatorID(c))
		return
	}
	c.JSON(http.StatusOK, newInstructionResponse(rec))
}

// @Summary      Preview instruction
// @Description  Resolves and renders without dispatching or recording.
// @Tags         instructions
// @Accept       json
// @Produce      json
// @Param        body  body      InstructionRequest  true  "Instruction"
// @Success      200   {object}  service.Preview
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /api/v1/instructions/preview [post]
// @Security     BearerAuth
func (h *Handler) previewInstruction(c *gin.Context) {
	var req InstructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	p, err := h.services.Instructions.Preview(c.Request.Context(), req.Text)
	if err != nil {
		h.respondServiceError(c, "failed to preview instruction", "instruction_preview_failed", err)
		return
	}
	c.JSON(http.StatusOK, p)
}
