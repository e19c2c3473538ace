package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"docketflow/internal/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("filename", func(fl validator.FieldLevel) bool {
			return IsPlainFileName(fl.Field().String())
		})
	})
	return validate
}

// Struct validates v and converts failures into a ValidationError. Missing
// required fields are reported together, in declaration order.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation(err.Error())
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}

	if len(missing) > 0 {
		return errors.Validation("Missing required fields: "+strings.Join(missing, ", "), missing...)
	}
	return errors.Validation(fmt.Sprintf("Invalid fields: %s", strings.Join(invalid, ", ")), invalid...)
}

// IsPlainFileName rejects names that would escape their storage prefix or
// carry control characters. URL-reserved characters are escaped when signing.
func IsPlainFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return strings.IndexFunc(name, unicode.IsControl) < 0
}
