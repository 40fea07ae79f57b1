package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"nexbid/internal/domain"
	"nexbid/pkg/utils"
)

var setupOnce sync.Once

// Setup 让 gin 的校验器用 json/form 标签名报告字段
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Translate 绑定错误 -> 带字段详情的 Validation 错误
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		details := make(map[string]string, len(ves))
		for _, fe := range ves {
			if _, seen := details[fe.Field()]; !seen {
				details[fe.Field()] = message(fe)
			}
		}
		return domain.InvalidFields("Validation failed", details)
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "body"
		}
		return domain.InvalidFields("Validation failed", map[string]string{field: "must be a " + jsonType(ute.Type)})
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return domain.Validation("Invalid JSON body")
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.Validation("Request body is required")
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return domain.Validation("Invalid query parameter: must be a number")
	}
	return domain.Validation(err.Error())
}

// ID 路径参数校验
func ID(name, v string) error {
	if !utils.IsID(v) {
		return domain.InvalidFields("Validation failed", map[string]string{name: "must be a valid id"})
	}
	return nil
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		if fe.Param() == "0" {
			return "must be a positive number"
		}
		return "must be greater than " + fe.Param()
	case "gtefield":
		return fmt.Sprintf("must be greater than or equal to %s", lowerFirst(fe.Param()))
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be an ISO 8601 / RFC 3339 date-time"
	case "uuid":
		return "must be a valid id"
	}
	return "is invalid"
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "whole number"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	}
	return t.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
