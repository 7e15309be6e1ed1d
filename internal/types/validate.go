package types

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that understands Date.
//
// Without the custom type func the validator would walk into Date's
// embedded time.Time and silently skip the "required" rule. Mapping a
// zero Date to nil makes "required" fail the same way it does for an
// empty string.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.Time
	}, Date{})
	return v
}
