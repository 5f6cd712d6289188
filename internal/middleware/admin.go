package middleware

import (
	"net/http"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// RequireAdmin checks that the authenticated user has platform admin level
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserLevel(c) < jwt.AdminLevel {
			common.AbortResponse(c, http.StatusForbidden, "admin level required")
			return
		}
		c.Next()
	}
}
