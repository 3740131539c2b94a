package dto

import "time"

// RegisterDTO 注册
type RegisterDTO struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=6,max=64"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=100"`
}

// CredentialDTO 登录凭证
type CredentialDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserDTO 会话用户
type UserDTO struct {
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// TokenDTO 登录结果
type TokenDTO struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}
