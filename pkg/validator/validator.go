package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field   string `json:"field" yaml:"field" xml:"field" bson:"field"`
	Code    string `json:"code" yaml:"code" xml:"code" bson:"code"`
	Message string `json:"message" yaml:"message" xml:"message" bson:"message"`
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return []ValidationError{{Code: "INVALID", Message: err.Error()}}, false
		}

		result := make([]ValidationError, 0, len(validationErrors))
		for _, err := range validationErrors {
			var message string
			switch err.Tag() {
			case "required":
				message = fmt.Sprintf("%s is required", err.Field())
			case "min":
				message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
			case "max":
				message = fmt.Sprintf("%s must not exceed %s", err.Field(), err.Param())
			case "gte":
				message = fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
			case "lte":
				message = fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
			case "oneof":
				message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
			default:
				message = fmt.Sprintf("%s failed on %s", err.Field(), err.Tag())
			}

			result = append(result, ValidationError{
				Field:   err.Field(),
				Code:    strings.ToUpper(err.Tag()),
				Message: message,
			})
		}

		return result, false
	}

	return nil, true
}

// Check is Validate folded into a single error wrapping ErrValidation.
func (v *Validator) Check(i any) error {
	validationErrors, ok := v.Validate(i)
	if ok {
		return nil
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, e.Message)
	}

	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}
