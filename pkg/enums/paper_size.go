package enums

import "fmt"

// PaperSize is the physical sheet format a line item prints on.
type PaperSize string

const (
	PaperSizeA4 PaperSize = "a4"
	PaperSizeA3 PaperSize = "a3"
)

var validPaperSizes = []PaperSize{
	PaperSizeA4,
	PaperSizeA3,
}

// String implements fmt.Stringer.
func (p PaperSize) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaperSize.
func (p PaperSize) IsValid() bool {
	for _, candidate := range validPaperSizes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaperSize converts raw input into a PaperSize.
func ParsePaperSize(value string) (PaperSize, error) {
	for _, candidate := range validPaperSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid paper size %q", value)
}
