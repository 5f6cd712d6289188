package handler

import (
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/middleware"
	"github.com/damoang/angple-chat/internal/service"
	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	service service.PresenceService
}

func NewPresenceHandler(svc service.PresenceService) *PresenceHandler {
	return &PresenceHandler{service: svc}
}

// SetTyping handles PUT /api/v1/chat/conversations/:id/typing
func (h *PresenceHandler) SetTyping(c *gin.Context) {
	var req domain.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	err := h.service.SetTyping(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.IsTyping)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"is_typing": req.IsTyping}, nil)
}

// GetTypingUsers handles GET /api/v1/chat/conversations/:id/typing
func (h *PresenceHandler) GetTypingUsers(c *gin.Context) {
	users, err := h.service.TypingUsers(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	common.SuccessResponse(c, users, nil)
}

// MarkAsRead handles POST /api/v1/chat/conversations/:id/read
func (h *PresenceHandler) MarkAsRead(c *gin.Context) {
	var req struct {
		At *time.Time `json:"at"`
	}
	// An empty body means "now"
	_ = c.ShouldBindJSON(&req)

	err := h.service.MarkAsRead(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.At)
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"read": true}, nil)
}

// UpdatePresence handles PUT /api/v1/chat/presence
func (h *PresenceHandler) UpdatePresence(c *gin.Context) {
	var req domain.PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, common.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.UpdatePresence(c.Request.Context(), middleware.GetUserID(c), req.State); err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"state": req.State}, nil)
}

// GetPresence handles GET /api/v1/chat/presence/:user_id
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	status, err := h.service.GetPresence(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		common.ErrorResponse(c, err)
		return
	}
	common.SuccessResponse(c, status, nil)
}
