package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type AuthConfig struct {
	StaticTokens []string
	JWTSecret    string
}

// Claims carried by scheduler JWTs.
type Claims struct {
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller. Static tokens are service
// credentials and may act on any business.
type Principal struct {
	BusinessID string
	Role       string
	Static     bool
}

// Privileged callers may use the emergency override and purge appointments.
func (p Principal) Privileged() bool {
	return p.Static || p.Role == "owner" || p.Role == "admin"
}

const principalKey = "principal"

// AuthMiddleware accepts HMAC-signed JWTs or static tokens.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	secret := strings.TrimSpace(cfg.JWTSecret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if secret != "" {
			var claims Claims
			_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(secret), nil
			}, jwt.WithLeeway(5*time.Second), jwt.WithExpirationRequired())
			if err == nil {
				c.Set(principalKey, Principal{BusinessID: claims.BusinessID, Role: claims.Role})
				c.Next()
				return
			}
		}

		// static tokens
		for _, t := range cfg.StaticTokens {
			if t != "" && tokenStr == strings.TrimSpace(t) {
				c.Set(principalKey, Principal{Role: "service", Static: true})
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

// RequireBusiness refuses tokens issued for a different business than the
// one in the path.
func RequireBusiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		if !p.Static && p.BusinessID != c.Param("business_id") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token not valid for this business"})
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}
	}
	p, _ := v.(Principal)
	return p
}
