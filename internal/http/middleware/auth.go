package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldops-service/internal/auth"
	"fieldops-service/internal/model"
)

const (
	claimsContextKey    = "tokenClaims"
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
	tokenQueryParam     = "token"
)

// Auth accepts a bearer token in the Authorization header. Streaming
// endpoints may pass it as ?token= because EventSource cannot set headers.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing"})
			return
		}

		claims, err := parser.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		principal := model.Principal{
			UserID: claims.UserID,
			Role:   claims.Role,
		}

		c.Set(claimsContextKey, claims)
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	rawHeader := c.GetHeader(authorizationHeader)
	if rawHeader == "" {
		token := strings.TrimSpace(c.Query(tokenQueryParam))
		return token, token != ""
	}

	parts := strings.SplitN(rawHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}

	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}

	return principal, true
}
