package routes

import (
	"github.com/damoang/angple-chat/internal/handler"
	"github.com/damoang/angple-chat/internal/middleware"
	"github.com/damoang/angple-chat/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	presenceHandler *handler.PresenceHandler,
	jwtManager *jwt.Manager,
) {
	api := router.Group("/api/v1/chat", middleware.JWTAuth(jwtManager))

	conversations := api.Group("/conversations")
	{
		conversations.POST("", conversationHandler.CreateConversation)
		conversations.GET("", conversationHandler.ListConversations)
		conversations.GET("/:id", conversationHandler.GetConversation)
		conversations.PATCH("/:id", conversationHandler.UpdateConversation)
		conversations.DELETE("/:id", conversationHandler.DeleteConversation)

		// Membership
		conversations.POST("/:id/join", conversationHandler.JoinConversation)
		conversations.POST("/:id/leave", conversationHandler.LeaveConversation)
		conversations.PUT("/:id/mute", conversationHandler.MuteConversation)

		// Moderation
		conversations.POST("/:id/lock", conversationHandler.LockConversation)
		conversations.POST("/:id/unlock", conversationHandler.UnlockConversation)
		conversations.POST("/:id/ban/:user_id", conversationHandler.BanUser)
		conversations.DELETE("/:id/ban/:user_id", conversationHandler.UnbanUser)

		// Messages
		conversations.POST("/:id/messages", messageHandler.SendMessage)
		conversations.GET("/:id/messages", messageHandler.GetMessages)

		// Typing and read markers
		conversations.PUT("/:id/typing", presenceHandler.SetTyping)
		conversations.GET("/:id/typing", presenceHandler.GetTypingUsers)
		conversations.POST("/:id/read", presenceHandler.MarkAsRead)
	}

	messages := api.Group("/messages")
	{
		messages.PATCH("/:message_id", messageHandler.EditMessage)
		messages.DELETE("/:message_id", messageHandler.DeleteMessage)
		messages.GET("/:message_id/reactions", messageHandler.ListReactions)
		messages.PUT("/:message_id/reactions", messageHandler.AddReaction)
		messages.DELETE("/:message_id/reactions", messageHandler.RemoveReaction)
	}

	presence := api.Group("/presence")
	{
		presence.PUT("", presenceHandler.UpdatePresence)
		presence.GET("/:user_id", presenceHandler.GetPresence)
	}

	// Platform-admin surface: takedowns without conversation membership.
	// The service layer re-checks the caller's level against the directory.
	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.DELETE("/conversations/:id", conversationHandler.DeleteConversation)
	}
}
