package enums

import "fmt"

// OfferStatus tracks a vendor offer through its acceptance window.
type OfferStatus string

const (
	OfferStatusOffered  OfferStatus = "offered"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	OfferStatusExpired  OfferStatus = "expired"
	OfferStatusVoided   OfferStatus = "voided"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusOffered,
	OfferStatusAccepted,
	OfferStatusDeclined,
	OfferStatusExpired,
	OfferStatusVoided,
}

// String implements fmt.Stringer.
func (o OfferStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferStatus.
func (o OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsOpen reports whether the offer can still be accepted or declined.
func (o OfferStatus) IsOpen() bool {
	return o == OfferStatusOffered
}

// ParseOfferStatus converts raw input into an OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}
