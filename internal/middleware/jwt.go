package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
)

// ContextKeyClaims carries the validated claims through the Gin context.
const ContextKeyClaims = "claims"

// RequireAuthorJWT admits requests that carry a valid author token in
// the Authorization header.
func RequireAuthorJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAuthorWSAuth reads the token from ?token=. Browser WebSocket
// clients cannot set headers on the upgrade request.
func RequireAuthorWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims returns the claims a Require* middleware stored, or nil on
// an unauthenticated route.
func GetClaims(c *gin.Context) *service.Claims {
	val, _ := c.Get(ContextKeyClaims)
	if claims, ok := val.(*service.Claims); ok {
		return claims
	}
	return nil
}

// bearerToken pulls the token out of the Authorization header, falling
// back to the query string for EventSource connects, which cannot set
// headers either.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return token
	}
	return c.Query("token")
}
