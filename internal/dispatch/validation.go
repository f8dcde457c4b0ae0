package dispatch

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
)

var (
	validate = newValidator()

	licensePlateRegex = regexp.MustCompile(`^\p{Han}[A-Z][0-9A-Z]{5,6}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Имена полей в ошибках - как в JSON.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("dispatch_time", func(fl validator.FieldLevel) bool {
		_, err := ParseRequiredTime(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	// +Inf проходит gt=0, а в JSON не кодируется.
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("license_plate", func(fl validator.FieldLevel) bool {
		return licensePlateRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseRequiredTime принимает "2006-01-02T15:04" и "2006-01-02 15:04".
func ParseRequiredTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{constants.RequiredTimeLayout, constants.RequiredTimeAltLayout} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("неверный формат времени: %q", raw)
}

// validateStruct превращает первую ошибку validator в ValidationError с полем.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, "数据格式不正确", err)
	}
	fe := verrs[0]
	return apperr.Validation(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("缺少必填字段: %s", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s必须是以下之一: %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s必须大于%s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s不能超过%s字符", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s不能少于%s字符", fe.Field(), fe.Param())
	case "finite":
		return fmt.Sprintf("%s必须是有效数字", fe.Field())
	case "dispatch_time":
		return fmt.Sprintf("%s格式不正确（如：2024-10-15T08:30）", fe.Field())
	case "license_plate":
		return "车牌号格式不正确（如：京A12345）"
	}
	return fmt.Sprintf("%s格式不正确", fe.Field())
}
