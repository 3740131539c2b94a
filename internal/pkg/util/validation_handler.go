package util

import (
	"Haven/internal/pkg/consts"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	registerOnce sync.Once
)

func init() {
	validate = validator.New()
	validate.SetTagName("binding")
	_ = registerRules(validate)
}

// RegisterValidations 在 gin 的校验引擎上注册自定义规则
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = registerRules(v)
	})
	return err
}

func registerRules(v *validator.Validate) error {
	return v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return consts.IsCategory(fl.Field().String())
	})
}

func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			firstError := vErrs[0]
			msg := fmt.Sprintf("字段 [%s] 校验失败，规则 [%s]",
				firstError.Field(),
				firstError.Tag())
			return errors.New(msg)
		}
		return err
	}
	return nil
}
