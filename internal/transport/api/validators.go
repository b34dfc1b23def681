package api

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validateMaxBytes max_bytes=N: длина строки в байтах не больше N. Тэг max считает руны, а колонки
// базы ограничены в байтах. На нестроковом поле или кривом параметре тэга проверка не проходит.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.ParseUint(fl.Param(), 10, 32)
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return uint64(len(field.String())) <= limit
}

// validateNotBlank not_blank: строка содержит что-то кроме пробелов.
func validateNotBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) != ""
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("validator registration: unexpected engine %T", binding.Validator.Engine())
	}
	for tag, fn := range map[string]validator.Func{
		"max_bytes": validateMaxBytes,
		"not_blank": validateNotBlank,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validator registration %s: %s", tag, err.Error())
		}
	}
	return nil
}
