package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-docchat/internal/pkg/jwtutil"
	"gopherai-docchat/internal/transport/http/response"
)

const (
	ContextUserIDKey          = "user_id"
	ContextUsernameKey        = "username"
	ContextTokenIdentifierKey = "token_identifier"
)

// AuthJWT admits requests carrying a valid bearer token and exposes the
// caller's token identifier to handlers.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c.GetHeader("Authorization"))
		if problem != "" {
			abortUnauthorized(c, problem)
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextTokenIdentifierKey, claims.TokenIdentifier)
		c.Next()
	}
}

// TokenIdentifier returns the caller's identity, or "" when the request is
// anonymous.
func TokenIdentifier(c *gin.Context) string {
	return c.GetString(ContextTokenIdentifierKey)
}

// UserID returns the authenticated user id, or 0.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(ContextUserIDKey)
	v, _ := id.(uint)
	return v
}

func bearerToken(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization scheme"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func abortUnauthorized(c *gin.Context, message string) {
	response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, message)
}
