package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/railmadad/backend/internal/service"
)

// @Summary Ask the help assistant
// @Tags chatbot
// @Accept json
// @Produce json
// @Param body body service.ChatRequest true "Message and prior turns"
// @Success 200 {object} service.ChatReply
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/chatbot [post]
func (h *Handler) Chatbot(c *gin.Context) {
	var req service.ChatRequest
	if !h.bindJSON(c, &req) {
		return
	}
	reply, err := h.Chat.Reply(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
