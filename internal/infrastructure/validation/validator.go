package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// stringRules are the custom tags request structs may use. Each applies to
// string fields only.
var stringRules = map[string]func(string) bool{
	"notblank": func(s string) bool { return strings.TrimSpace(s) != "" },
	"http_url": IsValidURL,
	// empty passes: a custom code is optional
	"short_code": func(s string) bool { return s == "" || IsValidCode(s) },
}

// Get returns the shared validator. Field names in errors are the json
// names, so they can be echoed back to API clients.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		for tag, rule := range stringRules {
			_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return fl.Field().Kind() == reflect.String && rule(fl.Field().String())
			})
		}
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func Validate(s any) error {
	return Get().Struct(s)
}

// FirstInvalidField reports the json name of the first field that failed,
// or "" when err is not a validation error.
func FirstInvalidField(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ""
	}
	return verrs[0].Field()
}
