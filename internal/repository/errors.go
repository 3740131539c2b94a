package repository

import (
	stderrors "errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound        = stderrors.New("帖子不存在")
	ErrPostCommentNotFound = stderrors.New("评论不存在")
	ErrPersistence         = stderrors.New("存储异常，请稍后重试")
	ErrUserExist           = stderrors.New("用户已存在")
)

// isDuplicateError 唯一键冲突. MySQL 返回 1062, 其他驱动由 gorm TranslateError 统一成 ErrDuplicatedKey
func isDuplicateError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// wrapError 统一转换存储层错误: 记录不存在 -> ErrPostNotFound, 其余 -> ErrPersistence(带堆栈)
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	if errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrPostCommentNotFound) {
		return err
	}
	return errors.Wrap(fmt.Errorf("%w: %w", ErrPersistence, err), op)
}
