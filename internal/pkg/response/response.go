package response

import (
	"Haven/internal/api/dto"
	"Haven/internal/service"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	Created             = 201
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

// Success 成功返回, 直接输出资源本身
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// CreatedWith 201 返回新建资源
func CreatedWith(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Fail 失败返回封装, HTTP 状态码与 code 一致
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, validationMessage(ve))
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	var syntaxError *json.SyntaxError
	var stdUnmarshalTypeError *stdjson.UnmarshalTypeError
	var stdSyntaxError *stdjson.SyntaxError
	if errors.As(err, &unmarshalTypeError) || errors.As(err, &syntaxError) ||
		errors.As(err, &stdUnmarshalTypeError) || errors.As(err, &stdSyntaxError) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		Fail(c, BadRequest, "Json错误")
		return
	}

	for target, code := range service.ErrorMap {
		if errors.Is(err, target) {
			if code >= InternalServerError {
				log.ErrorContext(c.Request.Context(), "request failed", "err", err, "stack", stackOf(err))
			}
			Fail(c, code, target.Error())
			return
		}
	}

	log.ErrorContext(c.Request.Context(), "unexpected error", "err", err, "stack", stackOf(err))
	Fail(c, InternalServerError, service.UnExpectedError.Error())
}

func validationMessage(ve validator.ValidationErrors) string {
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+":"+fe.Tag())
	}
	return "参数错误: " + strings.Join(parts, ", ")
}

// stackOf pkg/errors 包装过的错误在 %+v 下输出堆栈
func stackOf(err error) string {
	return fmt.Sprintf("%+v", err)
}
