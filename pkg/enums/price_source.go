package enums

import "fmt"

// PriceSource records which rung of the override hierarchy produced a price.
type PriceSource string

const (
	PriceSourceCustom       PriceSource = "custom"
	PriceSourceListItem     PriceSource = "list-item"
	PriceSourceListDiscount PriceSource = "list-discount"
	PriceSourceBase         PriceSource = "base"
)

var validPriceSources = []PriceSource{
	PriceSourceCustom,
	PriceSourceListItem,
	PriceSourceListDiscount,
	PriceSourceBase,
}

// String implements fmt.Stringer.
func (p PriceSource) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriceSource.
func (p PriceSource) IsValid() bool {
	for _, candidate := range validPriceSources {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceSource converts raw input into a PriceSource.
func ParsePriceSource(value string) (PriceSource, error) {
	for _, candidate := range validPriceSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price source %q", value)
}
