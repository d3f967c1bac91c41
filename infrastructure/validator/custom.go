package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

func validateVideoMime(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "video/")
}

func validateImageMime(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "image/")
}
