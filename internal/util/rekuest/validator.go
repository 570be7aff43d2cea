package rekuest

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	subjectRegex    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_@.-]{0,127}$`)
)

func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonTagName)
	validate.RegisterValidation("identifier", identifier)
	validate.RegisterValidation("caseinsensitiveoneof", caseInsensitiveOneOf)
	validate.RegisterValidation("subject", subject)

	return validate
}

// identifier matches lower snake case names such as CRM module and table names.
func identifier(fl validator.FieldLevel) bool {
	return identifierRegex.MatchString(fl.Field().String())
}

// subject matches user ids that are safe to use as a single storage key segment.
func subject(fl validator.FieldLevel) bool {
	return subjectRegex.MatchString(fl.Field().String())
}

func caseInsensitiveOneOf(fl validator.FieldLevel) bool {
	val := strings.ToLower(fl.Field().String())
	for _, v := range strings.Fields(strings.ToLower(fl.Param())) {
		if val == v {
			return true
		}
	}
	return false
}

// jsonTagName reports violations under the field's json name.
func jsonTagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	return name
}
