package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every missing-record error.
	ErrNotFound                = errors.New("not found")
	ErrProductNotFound         = fmt.Errorf("Product %w", ErrNotFound)
	ErrApprovalRequestNotFound = fmt.Errorf("Approval request %w", ErrNotFound)

	// Field validation failures, carried inside a ValidationError.
	ErrNameRequired    = errors.New("can't be blank")
	ErrNameTooLong     = fmt.Errorf("is too long (maximum is %d characters)", maxNameLength)
	ErrDuplicateName   = errors.New("Product has already been taken.")
	ErrPriceRequired   = errors.New("can't be blank")
	ErrPriceOutOfRange = errors.New("Product price cannot exceed $10,000.")
	ErrPriceCeiling    = errors.New("Price cannot exceed $10,000")

	// ErrPendingApproval blocks changes to a product that is queued for approval.
	ErrPendingApproval = errors.New("Product sent for an Approval, please wait for sometime.")

	ErrApproveFailed = errors.New("Failed to approve product")
	ErrRejectFailed  = errors.New("Failed to reject product")

	// ErrInvalidFilter marks a search parameter that could not be parsed.
	ErrInvalidFilter = errors.New("invalid search filter")
)

// maxNameLength matches the varchar(255) name column.
const maxNameLength = 255

// Field names used in validation errors.
const (
	FieldName  = "name"
	FieldPrice = "price"
	FieldBase  = "base"
)

// FieldError ties a validation sentinel to the field it failed on.
type FieldError struct {
	Field string
	Err   error
}

// ValidationError aggregates field-level failures from one validation pass.
type ValidationError struct {
	Fields []FieldError
}

func (v *ValidationError) Add(field string, err error) {
	v.Fields = append(v.Fields, FieldError{Field: field, Err: err})
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Messages groups the messages by field, preserving order.
func (v *ValidationError) Messages() map[string][]string {
	out := make(map[string][]string, len(v.Fields))
	for _, f := range v.Fields {
		out[f.Field] = append(out[f.Field], f.Err.Error())
	}
	return out
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Err.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(v.Fields))
	for _, f := range v.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}

func newValidationError(field string, err error) *ValidationError {
	v := &ValidationError{}
	v.Add(field, err)
	return v
}
