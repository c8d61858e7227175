package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Anan1218/homehealth/internal/config"
)

// CORS answers preflight requests and sets CORS headers for allowed origins.
func CORS(cfg config.Config) gin.HandlerFunc {
	allowed := normalizeOrigins(cfg.CORSAllowedOrigins)
	wildcard := containsWildcard(allowed)
	joinedMethods := strings.Join(cfg.CORSAllowedMethods, ", ")
	joinedHeaders := strings.Join(cfg.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Add("Vary", "Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if !wildcard && !originAllowed(origin, allowed) {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if wildcard && !cfg.CORSAllowCredentials {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
		}
		if cfg.CORSAllowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Expose-Headers", requestIDHeader)

		if preflight {
			header.Set("Access-Control-Allow-Methods", joinedMethods)
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" && joinedHeaders == "" {
				header.Set("Access-Control-Allow-Headers", requested)
			} else {
				header.Set("Access-Control-Allow-Headers", joinedHeaders)
			}
			header.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

const requestIDHeader = "X-Request-ID"

func normalizeOrigins(origins []string) []string {
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			result = append(result, origin)
		}
	}
	return result
}

func originAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
