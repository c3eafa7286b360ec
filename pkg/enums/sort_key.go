package enums

import "fmt"

// SortKey names a product listing order.
type SortKey string

const (
	SortKeyPriceAsc  SortKey = "price_asc"
	SortKeyPriceDesc SortKey = "price_desc"
	SortKeyTitleAsc  SortKey = "title_asc"
	SortKeyTitleDesc SortKey = "title_desc"
	SortKeyNewest    SortKey = "newest"
)

var validSortKeys = []SortKey{
	SortKeyPriceAsc,
	SortKeyPriceDesc,
	SortKeyTitleAsc,
	SortKeyTitleDesc,
	SortKeyNewest,
}

// String implements fmt.Stringer.
func (s SortKey) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SortKey.
func (s SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSortKey converts raw input into a SortKey.
func ParseSortKey(value string) (SortKey, error) {
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}
