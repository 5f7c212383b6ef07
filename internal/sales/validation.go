package sales

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateCreate(req CreateSaleRequest) error {
	ve := &ValidationError{}
	collectStructViolations(validate.Struct(req), ve)
	validateItems(req.Items, ve)
	return ve.orNil()
}

func validateUpdate(req UpdateSaleRequest) error {
	ve := &ValidationError{}
	collectStructViolations(validate.Struct(req), ve)
	if req.Items != nil {
		validateItems(*req.Items, ve)
	}
	return ve.orNil()
}

func validatePayment(req RecordPaymentRequest) error {
	ve := &ValidationError{}
	collectStructViolations(validate.Struct(req), ve)
	if req.Amount.Sign() <= 0 {
		ve.add("amount", "must be greater than zero")
	}
	return ve.orNil()
}

// validateItems covers the decimal constraints the struct tags cannot express.
// Every violated field is collected so the caller sees them all at once.
func validateItems(items []SaleItemInput, ve *ValidationError) {
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.Quantity < 1 {
			ve.add(prefix+".quantity", "must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			ve.add(prefix+".unitPrice", "must not be negative")
		}
		if item.Discount.IsNegative() || item.Discount.GreaterThan(oneHundred) {
			ve.add(prefix+".discount", "must be between 0 and 100")
		}
	}
}

func collectStructViolations(err error, ve *ValidationError) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.add("", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		ve.add(fieldPath(fe), messageFor(fe))
	}
}

// fieldPath strips the root struct name from the validator namespace, leaving
// the JSON path the caller recognises (e.g. items[0].itemName).
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
