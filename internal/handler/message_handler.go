package handler

import (
	"strconv"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/middleware"
	"github.com/damoang/angple-chat/internal/service"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service service.MessageService
}

func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// SendMessage handles POST /api/v1/chat/conversations/:id/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	data, err := h.service.Send(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}

	middleware.CountMessageSent()
	c.JSON(201, common.APIResponse{Data: data})
}

// GetMessages handles GET /api/v1/chat/conversations/:id/messages
func (h *MessageHandler) GetMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	ascending := c.Query("order") == "asc"

	data, meta, err := h.service.GetMessages(
		c.Request.Context(), c.Param("id"), middleware.GetUserID(c), c.Query("cursor"), limit, ascending)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, meta)
}

// EditMessage handles PATCH /api/v1/chat/messages/:message_id
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	data, err := h.service.Edit(c.Request.Context(), c.Param("message_id"), middleware.GetUserID(c), req.Text)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, nil)
}

// DeleteMessage handles DELETE /api/v1/chat/messages/:message_id
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("message_id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"deleted": true}, nil)
}

// AddReaction handles PUT /api/v1/chat/messages/:message_id/reactions
func (h *MessageHandler) AddReaction(c *gin.Context) {
	var req domain.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	err := h.service.AddReaction(c.Request.Context(), c.Param("message_id"), middleware.GetUserID(c), req.Value)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"value": req.Value}, nil)
}

// RemoveReaction handles DELETE /api/v1/chat/messages/:message_id/reactions
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	var req domain.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	err := h.service.RemoveReaction(c.Request.Context(), c.Param("message_id"), middleware.GetUserID(c), req.Value)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"removed": true}, nil)
}

// ListReactions handles GET /api/v1/chat/messages/:message_id/reactions
func (h *MessageHandler) ListReactions(c *gin.Context) {
	data, err := h.service.ListReactions(c.Request.Context(), c.Param("message_id"), middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, nil)
}
