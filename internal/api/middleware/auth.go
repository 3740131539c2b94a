package middleware

import (
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/redis"
	"Haven/internal/pkg/response"
	"Haven/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID   = "user_id"
	CtxUserName = "user_name"
	CtxRole     = "role"
	CtxToken    = "token"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			return
		}

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			return
		}

		if redis.Enabled() {
			revoked, err := redis.Exists(c.Request.Context(), consts.TokenBlacklistKey+signature)
			if err != nil {
				log.ErrorContext(c.Request.Context(), "token blacklist lookup failed", "err", err)
				response.Fail(c, response.InternalServerError, "未知错误")
				return
			}
			if revoked {
				response.Fail(c, response.Unauthorized, "Token 无效或已过期")
				return
			}
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			return
		}

		setIdentity(c, claims, tokenString)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func setIdentity(c *gin.Context, claims *security.UserClaims, token string) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxUserName, claims.Name)
	c.Set(CtxRole, string(claims.Role))
	c.Set(CtxToken, token)

	newCtx := context.WithValue(c.Request.Context(), CtxUserID, claims.UserID)
	c.Request = c.Request.WithContext(newCtx)
}
