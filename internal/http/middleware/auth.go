package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const accessTokenKey = "accessToken"

// BearerToken requires an Authorization bearer header and stores its credentials
// for handlers. It does not validate the token.
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		scheme, credentials, _ := strings.Cut(header, " ")
		credentials = strings.TrimSpace(credentials)
		if header == "" || scheme == "" || credentials == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
			return
		}
		if !strings.EqualFold(scheme, "Bearer") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Invalid authentication credentials"})
			return
		}
		c.Set(accessTokenKey, credentials)
		c.Next()
	}
}

// GetAccessToken returns the bearer credentials stored by BearerToken.
func GetAccessToken(c *gin.Context) (string, bool) {
	value, ok := c.Get(accessTokenKey)
	if !ok {
		return "", false
	}
	token, ok := value.(string)
	return token, ok && token != ""
}
