package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// validationFrom turns the first validator failure into a ValidationError.
func validationFrom(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "oneof":
		return invalid(fe.Field(), "must be one of %s", fe.Param())
	case "max":
		return invalid(fe.Field(), "must be at most %s characters", fe.Param())
	case "gt", "gte":
		return invalid(fe.Field(), "must be greater than %s", fe.Param())
	case "email":
		return invalid(fe.Field(), "must be a valid email")
	}
	return invalid(fe.Field(), "failed %s", fe.Tag())
}
