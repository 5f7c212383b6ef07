package sales

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced sale does not exist.
	ErrNotFound = errors.New("sale not found")
	// ErrConflict indicates the optimistic-concurrency retries were exhausted.
	// The caller should re-read the sale and resubmit.
	ErrConflict = errors.New("sale was modified concurrently")
	// ErrNotCreditSale indicates a ledger operation against a cash sale.
	ErrNotCreditSale = errors.New("payments can only be recorded against credit sales")

	// errVersionConflict is returned by the repository when a conditional
	// write misses its expected version; the service retries on it.
	errVersionConflict = errors.New("version conflict")
)

// FieldViolation is a single field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError carries every violated field in one error so the API can
// report them all at once. No partial writes occur when it is returned.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
