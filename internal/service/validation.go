package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// validate checks request structs against their `validate` tags. Errors are
// keyed by json field name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals are validated through their exact string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "dec_gte", compareDecimal(func(d, bound decimal.Decimal) bool { return d.GreaterThanOrEqual(bound) }))
	mustRegister(v, "dec_lte", compareDecimal(func(d, bound decimal.Decimal) bool { return d.LessThanOrEqual(bound) }))
	mustRegister(v, "dec_places", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		places, err := strconv.ParseInt(fl.Param(), 10, 32)
		if err != nil {
			panic(fmt.Sprintf("dec_places: bad parameter %q", fl.Param()))
		}
		return d.Equal(d.Round(int32(places)))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func compareDecimal(ok func(d, bound decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d, decimal.RequireFromString(fl.Param()))
	}
}

// validateStruct runs the tag rules on s and returns the failures as field
// messages. Failures inside a list land at their index, e.g.
// {"items": [{}, {"quantity": [...]}]}.
func validateStruct(s interface{}) FieldErrors {
	fields := FieldErrors{}
	err := validate.Struct(s)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(fmt.Sprintf("validate %T: %v", s, err))
	}
	for _, fe := range verrs {
		addAtPath(fields, fieldPath(fe.Namespace()), fieldMessage(fe))
	}
	return fields
}

// fieldPath drops the struct name from a namespace such as
// "OrderInput.items[1].quantity".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}

func addAtPath(fields FieldErrors, path, msg string) {
	list, rest, nested := strings.Cut(path, "[")
	if !nested {
		fields.Add(path, msg)
		return
	}
	idxText, field, _ := strings.Cut(rest, "]")
	idx, err := strconv.Atoi(idxText)
	if err != nil {
		fields.Add(list, msg)
		return
	}

	lines, _ := fields[list].([]FieldErrors)
	lines = padLines(lines, idx+1)
	field = strings.TrimPrefix(field, ".")
	if field == "" {
		field = "non_field_errors"
	}
	lines[idx].Add(field, msg)
	fields[list] = lines
}

// padLines grows lines to n entries, one empty FieldErrors per new line.
func padLines(lines []FieldErrors, n int) []FieldErrors {
	for len(lines) < n {
		lines = append(lines, FieldErrors{})
	}
	return lines
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return msgBlank
		}
		return msgRequired
	case "notblank":
		return msgBlank
	case "email":
		return "Enter a valid email address."
	case "max":
		if fe.Kind() == reflect.String {
			return msgMaxLength(paramInt(fe))
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		switch fe.Kind() {
		case reflect.Slice, reflect.Array:
			return "This list may not be empty."
		case reflect.String:
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gte", "dec_gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte", "dec_lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "dec_places":
		return fmt.Sprintf("Ensure that there are no more than %s decimal places.", fe.Param())
	}
	return "Invalid value."
}

func paramInt(fe validator.FieldError) int {
	n, _ := strconv.Atoi(fe.Param())
	return n
}

// trimmed returns a trimmed copy of s, or nil when s is nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
