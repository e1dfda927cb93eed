package enums

import "fmt"

// BindingKind identifies the binding applied to a finished document.
type BindingKind string

const (
	BindingKindNone   BindingKind = "none"
	BindingKindStaple BindingKind = "staple"
	BindingKindSpiral BindingKind = "spiral"
)

var validBindingKinds = []BindingKind{
	BindingKindNone,
	BindingKindStaple,
	BindingKindSpiral,
}

// String implements fmt.Stringer.
func (b BindingKind) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BindingKind.
func (b BindingKind) IsValid() bool {
	for _, candidate := range validBindingKinds {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBindingKind converts raw input into a BindingKind.
func ParseBindingKind(value string) (BindingKind, error) {
	for _, candidate := range validBindingKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid binding kind %q", value)
}
