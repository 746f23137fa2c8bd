package vending

import "errors"

// ErrorCode is the discriminant of a failed purchase. Purchase failures are
// ordinary return values; callers branch on the code.
type ErrorCode string

const (
	ErrUnknownItem       ErrorCode = "ERROR"
	ErrOutOfStock        ErrorCode = "OUTOFSTOCK"
	ErrInsufficientFunds ErrorCode = "INSUFFICIENTFUNDS"
	ErrNotEnoughChange   ErrorCode = "NOTENOUGHCHANGE"
)

func (c ErrorCode) Error() string { return string(c) }

// CodeOf returns the ErrorCode carried by err, or "" if err is nil or is not
// a purchase failure.
func CodeOf(err error) ErrorCode {
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ""
}
