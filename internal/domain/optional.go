package domain

import (
	"database/sql/driver"
	"strings"
)

// Optional is a CSV cell that may be missing. Absent columns, empty or
// whitespace-only cells, and cells the reader flagged as not-a-number all
// collapse to the zero Optional.
type Optional struct {
	value string
	valid bool
}

// Some returns a present Optional, or a missing one when s is blank.
func Some(s string) Optional {
	s = strings.TrimSpace(s)
	if s == "" {
		return Optional{}
	}
	return Optional{value: s, valid: true}
}

// None returns a missing Optional.
func None() Optional { return Optional{} }

// Get returns the value and whether it is present.
func (o Optional) Get() (string, bool) { return o.value, o.valid }

// Present reports whether the cell carries a value.
func (o Optional) Present() bool { return o.valid }

// String returns the value, or "" when missing.
func (o Optional) String() string { return o.value }

// Or returns the value, or fallback when missing.
func (o Optional) Or(fallback string) string {
	if !o.valid {
		return fallback
	}
	return o.value
}

// Value implements driver.Valuer so missing cells are stored as NULL.
func (o Optional) Value() (driver.Value, error) {
	if !o.valid {
		return nil, nil
	}
	return o.value, nil
}
