package enums

import "fmt"

// VendorBadge is the reward tier a vendor earns from cumulative completed sales.
type VendorBadge string

const (
	VendorBadgeNone     VendorBadge = "none"
	VendorBadgeBronze   VendorBadge = "bronze"
	VendorBadgeSilver   VendorBadge = "silver"
	VendorBadgeGold     VendorBadge = "gold"
	VendorBadgeDiamond  VendorBadge = "diamond"
	VendorBadgePlatinum VendorBadge = "platinum"
)

// validVendorBadges is ordered lowest tier first; Rank depends on this order.
var validVendorBadges = []VendorBadge{
	VendorBadgeNone,
	VendorBadgeBronze,
	VendorBadgeSilver,
	VendorBadgeGold,
	VendorBadgeDiamond,
	VendorBadgePlatinum,
}

// String implements fmt.Stringer.
func (v VendorBadge) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorBadge.
func (v VendorBadge) IsValid() bool {
	for _, candidate := range validVendorBadges {
		if candidate == v {
			return true
		}
	}
	return false
}

// Rank returns the badge's position in the progression, 0 for the lowest
// tier. Unknown values rank with the lowest tier.
func (v VendorBadge) Rank() int {
	for i, candidate := range validVendorBadges {
		if candidate == v {
			return i
		}
	}
	return 0
}

// VendorBadges returns every tier in progression order, lowest first.
func VendorBadges() []VendorBadge {
	return append([]VendorBadge(nil), validVendorBadges...)
}

// ParseVendorBadge converts raw input into a VendorBadge.
func ParseVendorBadge(value string) (VendorBadge, error) {
	for _, candidate := range validVendorBadges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor badge %q", value)
}
