package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/http/middleware"
	"github.com/railmadad/backend/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Complaints     *service.ComplaintService
	Categories     *service.CategoryService
	Users          *service.UserService
	Chat           *service.ChatService
	OTP            *auth.OTPService
	Health         Pinger
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} ErrorResponse
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Health.Ping(ctx); err != nil {
		h.writeError(c, apperrors.Wrap(err, apperrors.ErrDependencyUnavailable, "database unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError renders err as {error, code}. Server errors are logged with their cause.
func (h *Handler) writeError(c *gin.Context, err error) {
	e := apperrors.FromError(err)
	if e.Status >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDHeader)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.Status, ErrorResponse{Error: e.Message, Code: e.Code})
}

func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, apperrors.Wrap(err, apperrors.ErrValidation, "invalid JSON payload"))
		return false
	}
	return true
}

func principal(c *gin.Context) auth.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

func pagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
