package models

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/go-playground/validator/v10"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 64
)

var (
	validate     = newValidator()
	specialRegex = regexp.MustCompile(`[\\^$*.\[\]{}()?"!@#%&/\\,><':;|_~` + "`" + `=+\-]`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("password", passwordRule); err != nil {
		panic(err)
	}
	return v
}

// passwordRule requires upper and lower case letters, a digit and a
// special character within the configured length bounds.
func passwordRule(fl validator.FieldLevel) bool {
	password, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return ValidPassword(password)
}

// ValidPassword reports whether password satisfies the credential policy.
func ValidPassword(password string) bool {
	if len(password) < PasswordMinLength || len(password) > PasswordMaxLength {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit && specialRegex.MatchString(password)
}

// validateStruct runs the struct tags of s and converts the result into
// field level problems keyed by JSON name.
func validateStruct(s any) *e.ValidationError {
	out := e.NewValidationError()
	err := validate.Struct(s)
	if err == nil {
		return out
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out.Add("_", err.Error())
		return out
	}
	for _, fe := range ve {
		out.Add(fe.Field(), describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "value is too short, min: " + fe.Param()
	case "max":
		return "value is too long, max: " + fe.Param()
	case "len":
		return "value must have length " + fe.Param()
	case "email":
		return "value must be a valid email address"
	case "numeric":
		return "value must contain digits only"
	case "alpha":
		return "value must contain letters only"
	case "oneof":
		return "value must be one of: " + fe.Param()
	case "password":
		return "value must have 8-64 characters with upper and lower case letters, a digit and a special character"
	default:
		return "invalid value provided"
	}
}
