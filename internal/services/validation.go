package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that knows the "mobile" rule (11 digits
// starting with 09) and reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	return v
}

// IsMobile reports whether phone is exactly 11 digits with a leading "09".
func IsMobile(phone string) bool {
	if len(phone) != 11 || !strings.HasPrefix(phone, "09") {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateStruct runs v against s and folds every failing field into one
// ValidationError.
func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		fields[e.Field()] = fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
	return &ValidationError{Fields: fields}
}
