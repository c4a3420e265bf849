package utils

import "fmt"

// NewError creates a new error carrying msg verbatim.
func NewError(msg string) error {
	return fmt.Errorf("%s", msg)
}

// WrapError wraps err with additional context, preserving it for errors.Is/As.
func WrapError(err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
