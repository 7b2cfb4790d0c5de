package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxUserID is the gin context key under which the authenticated user's id
// is stored.
const ctxUserID = "userID"

// requireAuth validates the Authorization bearer token and stores the
// authenticated user id in the request context.
func requireAuth(issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		token := header
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			token = strings.TrimSpace(header[len("bearer "):])
		}

		userID, err := issuer.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// authedUser returns the authenticated user id set by requireAuth.
func authedUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
