// Package mme implements the opioid conversion table, the daily MME calculator,
// risk classification and cross-opioid dose conversion.
package mme

import (
	"errors"
	"fmt"
)

// Kind classifies calculation errors
type Kind string

const (
	// KindValidation is bad caller input: unknown opioid, bad dose or frequency
	KindValidation Kind = "validation"
	// KindDomain is an arithmetic domain failure such as a zero target factor
	KindDomain Kind = "domain"
)

var (
	ErrUnknownOpioid    = errors.New("unknown opioid")
	ErrInvalidDose      = errors.New("dose must be a non-negative number")
	ErrInvalidFrequency = errors.New("frequency must be a non-negative whole number")
	ErrZeroFactor       = errors.New("target conversion factor is zero")
	ErrInvalidTable     = errors.New("invalid conversion table")
	ErrOverflow         = errors.New("result exceeds the representable range")
)

// Error is returned by every operation in this package.
// Index is the position of the offending line item, or -1 when the error is not
// tied to a line item.
type Error struct {
	Kind    Kind
	Field   string
	Index   int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("medications[%d].%s: %s", e.Index, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}

// IsDomain reports whether err is a domain error
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDomain
}

// NewValidationError reports a bad field. index is the line item position or
// -1; sentinel is one of the package errors and supplies the message.
func NewValidationError(index int, field string, sentinel error) *Error {
	return validationError(index, field, sentinel)
}

func validationError(index int, field string, sentinel error) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Index:   index,
		Message: sentinel.Error(),
		Err:     sentinel,
	}
}

func domainError(index int, field string, sentinel error) *Error {
	return &Error{
		Kind:    KindDomain,
		Field:   field,
		Index:   index,
		Message: sentinel.Error(),
		Err:     sentinel,
	}
}

func unknownOpioidError(index int, field, id string) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Index:   index,
		Message: fmt.Sprintf("unknown opioid %q", id),
		Err:     ErrUnknownOpioid,
	}
}
