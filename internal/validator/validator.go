package validator

import (
	"reflect"
	"strings"
	"sync"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json field names instead of go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// decimals are validated by their float value so gte/lte work
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// ValidateRequest runs struct tag validation and converts failures into a
// validation error whose details list the offending fields.
func ValidateRequest(req interface{}) error {
	err := get().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !ierr.As(err, &verrs) {
		return ierr.WithError(err).
			WithHint("Request validation failed").
			Mark(ierr.ErrValidation)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = describe(fe)
	}

	return ierr.WithError(err).
		WithHint("Request validation failed").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt", "gte", "lt", "lte", "min", "max", "len":
		return "failed " + fe.Tag() + "=" + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
