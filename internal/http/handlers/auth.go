package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

// @Summary Send a login code
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SendOTPRequest true "Phone number"
// @Success 200 {object} auth.SendResult
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/auth/send-otp [post]
func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.OTP.Send(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Verify a login code
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Phone number and code"
// @Success 200 {object} auth.LoginResult
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/verify-otp [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.OTP.Verify(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Users.Me(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
