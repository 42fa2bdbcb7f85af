package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	format "github.com/nkiryanov/bazario/internal/service/validate"
)

func configureValidator(v *validator.Validate) {
	_ = v.RegisterValidation("email", validateEmail) // Same rules as for login handle
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("emailorphone", validateEmailOrPhone)

	// Return on 'TagName' json tag instead of struct name
	// Look at documentation of 'RegisterTagNameFunc' for more details
	v.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateEmail(fl validator.FieldLevel) bool {
	return format.Email(fl.Field().String()) == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	return format.Phone(fl.Field().String()) == nil
}

func validateEmailOrPhone(fl validator.FieldLevel) bool {
	return format.Handle(fl.Field().String()) == nil
}
