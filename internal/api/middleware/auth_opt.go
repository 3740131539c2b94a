package middleware

import (
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/redis"
	"Haven/internal/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthOptionalMiddleware 可选鉴权：解析成功注入身份，失败或缺失则为匿名
func AuthOptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := security.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		if redis.Enabled() {
			if signature, err := security.ExtractSignature(token); err == nil {
				if revoked, _ := redis.Exists(c.Request.Context(), consts.TokenBlacklistKey+signature); revoked {
					c.Next()
					return
				}
			}
		}

		setIdentity(c, claims, token)
		c.Next()
	}
}
