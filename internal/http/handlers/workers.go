package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/service"
)

type ProgressRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// @Summary Assignments of the calling worker
// @Tags worker
// @Produce json
// @Param status query string false "Complaint status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} ComplaintListResponse
// @Security BearerAuth
// @Router /api/worker/assignments [get]
func (h *Handler) WorkerAssignments(c *gin.Context) {
	items, total, f, err := h.Complaints.ListAssigned(c.Request.Context(), principal(c), complaintFilter(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ComplaintListResponse{Complaints: items, Pagination: pagination(total, f.Page, f.Limit)})
}

// @Summary Report progress on an assignment
// @Tags worker
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param body body ProgressRequest true "in_progress or completed"
// @Success 200 {object} models.Complaint
// @Security BearerAuth
// @Router /api/worker/assignments/{id} [patch]
func (h *Handler) WorkerProgress(c *gin.Context) {
	var req ProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	complaint, err := h.Complaints.WorkerProgress(c.Request.Context(), principal(c), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// @Summary Update worker availability
// @Tags worker
// @Accept json
// @Produce json
// @Param body body service.AvailabilityRequest true "Availability"
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /api/worker/availability [patch]
func (h *Handler) WorkerAvailability(c *gin.Context) {
	var req service.AvailabilityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	u, err := h.Users.UpdateAvailability(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary List workers
// @Tags workers
// @Produce json
// @Param trainNumber query string false "Train the worker is on"
// @Param available query bool false "Only available workers"
// @Success 200 {array} models.User
// @Security BearerAuth
// @Router /api/workers [get]
func (h *Handler) ListWorkers(c *gin.Context) {
	f := models.WorkerFilter{TrainNumber: c.Query("trainNumber")}
	if raw := c.Query("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(c, apperrors.Clone(apperrors.ErrValidation, "available must be true or false"))
			return
		}
		f.AvailableOnly = v
	}
	items, err := h.Users.ListWorkers(c.Request.Context(), principal(c), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Complaint statistics
// @Tags stats
// @Produce json
// @Param range query string false "24h, 7d, 30d or 90d"
// @Success 200 {object} models.Stats
// @Security BearerAuth
// @Router /api/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.Complaints.Stats(c.Request.Context(), principal(c), c.Query("range"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
