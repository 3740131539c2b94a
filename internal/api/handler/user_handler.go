package handler

import (
	"Haven/internal/api/dto"
	"Haven/internal/api/middleware"
	"Haven/internal/pkg/response"
	"Haven/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Register 注册
func (s *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	user, err := s.userService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CreatedWith(c, user)
}

// Login 登录, 返回 token 与会话用户
func (s *UserHandler) Login(c *gin.Context) {
	var req dto.CredentialDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	token, err := s.userService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, token)
}

// Logout 注销当前 token
func (s *UserHandler) Logout(c *gin.Context) {
	if err := s.userService.Logout(c.Request.Context(), c.GetString(middleware.CtxToken)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"logout": true})
}

// Me 当前会话用户
func (s *UserHandler) Me(c *gin.Context) {
	user, err := s.userService.GetUserInfo(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}
