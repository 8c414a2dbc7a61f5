package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// TriggerGuard protects the reminder trigger endpoint. With an empty hash
// the endpoint is open, as schedulers commonly call it without credentials.
// Otherwise the bearer token (or apikey header) must match the bcrypt hash.
func TriggerGuard(tokenHash string) gin.HandlerFunc {
	hash := []byte(strings.TrimSpace(tokenHash))
	return func(c *gin.Context) {
		if len(hash) == 0 || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			token = strings.TrimSpace(c.GetHeader("apikey"))
		}
		if token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			log.Printf("[trigger][deny] remote=%s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid trigger token"})
			return
		}
		c.Next()
	}
}
