package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/service"
)

// @Summary List categories
// @Tags categories
// @Produce json
// @Param active query bool false "Only active categories (default true)"
// @Success 200 {array} models.Category
// @Router /api/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	activeOnly := true
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(c, apperrors.Clone(apperrors.ErrValidation, "active must be true or false"))
			return
		}
		activeOnly = v
	}
	items, err := h.Categories.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.Categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Param body body service.CreateCategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cat, err := h.Categories.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param body body service.UpdateCategoryRequest true "Fields to change"
// @Success 200 {object} models.Category
// @Security BearerAuth
// @Router /api/categories/{id} [patch]
func (h *Handler) UpdateCategory(c *gin.Context) {
	var req service.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cat, err := h.Categories.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// @Summary Deactivate a category
// @Description Categories are never removed; they stop being offered to new complaints.
// @Tags categories
// @Param id path string true "Category ID"
// @Success 204
// @Security BearerAuth
// @Router /api/categories/{id} [delete]
func (h *Handler) DeactivateCategory(c *gin.Context) {
	if err := h.Categories.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
