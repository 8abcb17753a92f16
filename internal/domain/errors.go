package domain

import "fmt"

// ParseError reports a time cell that is present but not a recognized
// timestamp format.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: unsupported time format", e.Field, e.Value)
}

// ValidationError reports a required field that is missing after defaulting.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}
