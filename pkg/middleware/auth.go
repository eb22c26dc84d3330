package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gilby125/cs509-reservation-client/config"
)

// AdminAuth guards the admin routes with a bearer token or basic auth.
// Everything passes when auth is disabled.
func AdminAuth(cfg config.AdminAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		if cfg.Token != "" {
			if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && equal(token, cfg.Token) {
				c.Next()
				return
			}
		}

		if cfg.Username != "" && cfg.Password != "" {
			if username, password, ok := c.Request.BasicAuth(); ok && equal(username, cfg.Username) && equal(password, cfg.Password) {
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Basic realm="reservation admin"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin credentials required"})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
