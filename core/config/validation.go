package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate 执行结构体标签校验与认证小节校验。
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if _, err := decodeAuth(&cfg.Auth); err != nil {
		return err
	}
	return nil
}

// formatValidationError 只报告第一条校验错误。
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: 未通过 '%s' 校验（值: %v）", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
