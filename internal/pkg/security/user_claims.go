package security

import (
	"Haven/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims Token 中携带的会话身份
type UserClaims struct {
	UserID string     `json:"user_id"` // email
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}
