// Package validator decodes JSON request bodies and checks them against
// go-playground/validator struct tags. Fields are reported by their JSON
// names, and decimal.Decimal amounts take part in numeric rules such as gte.
package validator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	return v
}

// ValidationError lists the rule violations of one request.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field()+" "+describe(fe))
	}
	return strings.Join(parts, "; ")
}

// Fields maps each offending JSON field to a readable rule description.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[fe.Field()] = describe(fe)
	}
	return out
}

var ruleText = map[string]string{
	"required": "is required",
	"min":      "must be at least %s long",
	"max":      "must be at most %s long",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"gt":       "must be greater than %s",
	"oneof":    "must be one of: %s",
}

func describe(fe validator.FieldError) string {
	text, ok := ruleText[fe.Tag()]
	if !ok {
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
	if strings.Contains(text, "%s") {
		return fmt.Sprintf(text, fe.Param())
	}
	return text
}

// Validate checks s against its struct tags. Rule violations come back as
// *ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		return &ValidationError{Errors: ve}
	}
	return err
}

// DecodeAndValidate decodes the JSON body of r into dst and validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return Validate(dst)
}
