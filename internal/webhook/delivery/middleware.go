package delivery

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretMiddleware authenticates callers with the shared webhook secret,
// supplied either as a query parameter or a dedicated header.
func SecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("X-Webhook-Token")
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing webhook token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
