package enums

import "fmt"

// PrintSides selects single- or double-sided printing.
type PrintSides string

const (
	PrintSidesSingle PrintSides = "single"
	PrintSidesDouble PrintSides = "double"
)

var validPrintSides = []PrintSides{
	PrintSidesSingle,
	PrintSidesDouble,
}

// String implements fmt.Stringer.
func (p PrintSides) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PrintSides.
func (p PrintSides) IsValid() bool {
	for _, candidate := range validPrintSides {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePrintSides converts raw input into a PrintSides.
func ParsePrintSides(value string) (PrintSides, error) {
	for _, candidate := range validPrintSides {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid print sides %q", value)
}
