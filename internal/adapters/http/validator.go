package http

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateStruct(payload any) map[string]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fieldName := strings.ToLower(e.Field())
			switch e.Tag() {
			case "required":
				errors[fieldName] = fmt.Sprintf("The %s field is required.", e.Field())
			case "max":
				errors[fieldName] = fmt.Sprintf("The %s may not be greater than %s characters.", e.Field(), e.Param())
			case "url":
				errors[fieldName] = fmt.Sprintf("The %s must be a valid URL.", e.Field())
			default:
				errors[fieldName] = fmt.Sprintf("The %s field is invalid.", e.Field())
			}
		}
	}

	return errors
}
