// Package validation builds field-level validation errors for request DTOs.
package validation

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/gym-membership/internal"
)

// OrderIDPattern matches merchant transaction ids accepted by the provider.
var OrderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,38}$`)

// rule returns a message and code when value fails, or "" when it passes.
type rule func(value any) (string, errors.ErrorCode)

type FieldValidator struct {
	name  string
	value any
	rules []rule
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{}
}

func (v *ValidationBuilder) Field(name string, value any) *FieldValidator {
	fv := &FieldValidator{name: name, value: value}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) add(r rule) *FieldValidator {
	fv.rules = append(fv.rules, r)
	return fv
}

func (fv *FieldValidator) Required() *FieldValidator {
	return fv.add(func(value any) (string, errors.ErrorCode) {
		missing := false
		switch v := value.(type) {
		case string:
			missing = v == ""
		case int64:
			missing = v == 0
		case *string:
			missing = v == nil || *v == ""
		case nil:
			missing = true
		}
		if missing {
			return fmt.Sprintf("%s is required", fv.name), errors.ErrCodeValidationFailed
		}
		return "", ""
	})
}

func (fv *FieldValidator) MinInt(min int64, code errors.ErrorCode) *FieldValidator {
	return fv.add(func(value any) (string, errors.ErrorCode) {
		if v, ok := value.(int64); ok && v < min {
			return fmt.Sprintf("%s must be at least %d", fv.name, min), code
		}
		return "", ""
	})
}

// Matches skips empty strings; pair it with Required when the field is mandatory.
func (fv *FieldValidator) Matches(pattern *regexp.Regexp, code errors.ErrorCode) *FieldValidator {
	return fv.add(func(value any) (string, errors.ErrorCode) {
		if v, ok := value.(string); ok && v != "" && !pattern.MatchString(v) {
			return fmt.Sprintf("%s has an invalid format", fv.name), code
		}
		return "", ""
	})
}

// PositiveDecimal accepts decimal.Decimal and *decimal.Decimal; a nil pointer is skipped.
func (fv *FieldValidator) PositiveDecimal(code errors.ErrorCode) *FieldValidator {
	return fv.add(func(value any) (string, errors.ErrorCode) {
		var d decimal.Decimal
		switch v := value.(type) {
		case decimal.Decimal:
			d = v
		case *decimal.Decimal:
			if v == nil {
				return "", ""
			}
			d = *v
		default:
			return "", ""
		}
		if !d.IsPositive() {
			return fmt.Sprintf("%s must be positive", fv.name), code
		}
		return "", ""
	})
}

// Validate reports the first failing rule of every field, or nil.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var details []errors.ValidationError
	for _, f := range v.fields {
		for _, r := range f.rules {
			if msg, code := r(f.value); msg != "" {
				details = append(details, errors.ValidationError{Field: f.name, Message: msg, Code: string(code)})
				break
			}
		}
	}
	if len(details) == 0 {
		return nil
	}
	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: details})
}

func ValidateOrderID(orderID string) *errors.AppError {
	validator := NewValidator()
	validator.Field("order_id", orderID).
		Required().
		Matches(OrderIDPattern, errors.ErrCodeInvalidOrderID)
	return validator.Validate()
}
