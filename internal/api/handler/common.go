package handler

import (
	"Haven/internal/api/middleware"
	"Haven/internal/model"
	"Haven/internal/pkg/response"
	"Haven/internal/service"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// actorOf 从鉴权中间件注入的信息构造调用者
func actorOf(c *gin.Context) service.Actor {
	return service.Actor{
		ID:   c.GetString(middleware.CtxUserID),
		Name: c.GetString(middleware.CtxUserName),
		Role: model.Role(c.GetString(middleware.CtxRole)),
	}
}

// bindFailed 绑定失败统一按 400 返回
func bindFailed(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		response.Error(c, err)
		return
	}
	response.Error(c, service.ErrParamInvalid)
}
