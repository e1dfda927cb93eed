package enums

import "fmt"

// ColorMode distinguishes monochrome from color printing on a line item.
type ColorMode string

const (
	ColorModeMonochrome ColorMode = "monochrome"
	ColorModeColor      ColorMode = "color"
)

var validColorModes = []ColorMode{
	ColorModeMonochrome,
	ColorModeColor,
}

// String implements fmt.Stringer.
func (c ColorMode) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ColorMode.
func (c ColorMode) IsValid() bool {
	for _, candidate := range validColorModes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseColorMode converts raw input into a ColorMode.
func ParseColorMode(value string) (ColorMode, error) {
	for _, candidate := range validColorModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid color mode %q", value)
}
