package handler

import (
	"strconv"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/middleware"
	"github.com/damoang/angple-chat/internal/service"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	service    service.ConversationService
	moderation service.ModerationService
}

func NewConversationHandler(svc service.ConversationService, moderation service.ModerationService) *ConversationHandler {
	return &ConversationHandler{service: svc, moderation: moderation}
}

// CreateConversation handles POST /api/v1/chat/conversations
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	data, err := h.service.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}

	c.JSON(201, common.APIResponse{Data: data})
}

// GetConversation handles GET /api/v1/chat/conversations/:id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	data, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, nil)
}

// ListConversations handles GET /api/v1/chat/conversations
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	data, meta, err := h.service.List(c.Request.Context(), middleware.GetUserID(c), c.Query("cursor"), limit)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, meta)
}

// UpdateConversation handles PATCH /api/v1/chat/conversations/:id
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	var req domain.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	data, err := h.service.Update(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, data, nil)
}

// JoinConversation handles POST /api/v1/chat/conversations/:id/join
func (h *ConversationHandler) JoinConversation(c *gin.Context) {
	if err := h.service.Join(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"joined": true}, nil)
}

// LeaveConversation handles POST /api/v1/chat/conversations/:id/leave
func (h *ConversationHandler) LeaveConversation(c *gin.Context) {
	if err := h.service.Leave(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"left": true}, nil)
}

// MuteConversation handles PUT /api/v1/chat/conversations/:id/mute
func (h *ConversationHandler) MuteConversation(c *gin.Context) {
	var req struct {
		Muted bool `json:"muted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.ToggleMute(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Muted); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"muted": req.Muted}, nil)
}

// LockConversation handles POST /api/v1/chat/conversations/:id/lock
func (h *ConversationHandler) LockConversation(c *gin.Context) {
	if err := h.moderation.Lock(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"locked": true}, nil)
}

// UnlockConversation handles POST /api/v1/chat/conversations/:id/unlock
func (h *ConversationHandler) UnlockConversation(c *gin.Context) {
	if err := h.moderation.Unlock(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"locked": false}, nil)
}

// BanUser handles POST /api/v1/chat/conversations/:id/ban/:user_id
func (h *ConversationHandler) BanUser(c *gin.Context) {
	err := h.moderation.BanUser(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), c.Param("user_id"))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"banned": true}, nil)
}

// UnbanUser handles DELETE /api/v1/chat/conversations/:id/ban/:user_id
func (h *ConversationHandler) UnbanUser(c *gin.Context) {
	err := h.moderation.UnbanUser(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), c.Param("user_id"))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"banned": false}, nil)
}

// DeleteConversation handles DELETE /api/v1/chat/conversations/:id
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.moderation.DeleteConversation(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"deleted": true}, nil)
}
