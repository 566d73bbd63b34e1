package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/response"
)

// RequirePermission gates a route on a single permission code from the
// author's token.
func RequirePermission(code string) gin.HandlerFunc {
	return requireAny(code)
}

// RequireAnyPermission gates a route on holding at least one of the
// listed codes.
func RequireAnyPermission(codes ...string) gin.HandlerFunc {
	return requireAny(codes...)
}

func requireAny(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, code := range codes {
			if slices.Contains(claims.Permissions, code) {
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}
