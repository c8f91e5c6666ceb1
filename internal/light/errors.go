package light

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is wrapped by every FormatError.
	ErrFormat = errors.New("invalid value format")
	// ErrInvalidRange is wrapped by every InvalidRangeError.
	ErrInvalidRange = errors.New("value out of range")
	// ErrUnknownChange is returned by Store.Set for a Change outside the accessory.
	ErrUnknownChange = errors.New("unknown characteristic")
)

// FormatError reports a value whose type tag does not match the characteristic.
type FormatError struct {
	Characteristic Change
	Want           Format
	Got            Format
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s value format: got %s, want %s", e.Characteristic, e.Got, e.Want)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// InvalidRangeError reports a well-typed value outside its meaningful domain.
type InvalidRangeError struct {
	Characteristic Change
	Value          Value
	Reason         string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s value %s: %s", e.Characteristic, e.Value, e.Reason)
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}
