package service

import (
	"Haven/internal/repository"
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrCategoryInvalid     = errors.New("分类无效")
	ErrSortInvalid         = errors.New("排序方式无效")
	ErrTitleEmpty          = errors.New("标题不能为空")
	ErrContentEmpty        = errors.New("内容不能为空")
	ErrUnauthorized        = errors.New("未登录或登录已过期")
	ErrForbidden           = errors.New("权限不足")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserExist           = repository.ErrUserExist
	ErrPasswordIncorrect   = errors.New("邮箱或密码错误")
	ErrPostNotFound        = repository.ErrPostNotFound
	ErrPostCommentNotFound = repository.ErrPostCommentNotFound
	ErrPersistence         = repository.ErrPersistence
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrCategoryInvalid:     BadRequest,
	ErrSortInvalid:         BadRequest,
	ErrTitleEmpty:          BadRequest,
	ErrContentEmpty:        BadRequest,
	ErrUnauthorized:        Unauthorized,
	ErrForbidden:           Forbidden,
	ErrUserNotFound:        NotFound,
	ErrUserExist:           Conflict,
	ErrPasswordIncorrect:   Unauthorized,
	ErrPostNotFound:        NotFound,
	ErrPostCommentNotFound: NotFound,
	ErrPersistence:         InternalServerError,
	UnExpectedError:        InternalServerError,
}

// IsValidationError 是否属于参数校验类错误
func IsValidationError(err error) bool {
	for _, target := range []error{ErrParamInvalid, ErrCategoryInvalid, ErrSortInvalid, ErrTitleEmpty, ErrContentEmpty} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
