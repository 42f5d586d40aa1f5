package handlers

import (
	"net/http"

	"home_dispatch/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      List scheduled jobs
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, jobs"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	jobs, err := h.services.Schedules.ListJobs(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load schedules", "schedules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// @Summary      Get scheduled job
// @Tags         schedules
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  service.JobView
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	job, err := h.services.Schedules.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, "failed to load schedule", "schedule_get_failed", err, "job_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, job)
}

// @Summary      Create scheduled job
// @Description  recurrence.type is one of once, daily, weekly, weekdays, weekends; time is HH:MM; weekly takes weekday or weekdays (0=Sunday).
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      service.JobInput  true  "Job"
// @Success      201   {object}  service.JobView
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var in service.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	job, err := h.services.Schedules.CreateJob(c.Request.Context(), in)
	if err != nil {
		h.respondServiceError(c, "failed to create schedule", "schedule_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// @Summary      Update scheduled job
// @Description  Replaces the job definition. Omitting enabled keeps the current flag.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path      string            true  "Job id"
// @Param        body  body      service.JobInput  true  "Job"
// @Success      200   {object}  service.JobView
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	var in service.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	job, err := h.services.Schedules.UpdateJob(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondServiceError(c, "failed to update schedule", "schedule_update_failed", err, "job_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, job)
}

// @Summary      Delete scheduled job
// @Tags         schedules
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	if err := h.services.Schedules.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, "failed to delete schedule", "schedule_delete_failed", err, "job_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted})
}

// @Summary      Scheduler status
// @Description  Read-only view of each registered job: idle, due or dispatching, plus next and last fire.
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "jobs"
// @Router       /api/v1/schedules/status [get]
// @Security     BearerAuth
func (h *Handler) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.services.Scheduler.Status()})
}
