package enums

import "fmt"

// ProductState marks a product's lifecycle. Retired products stay in
// storage so order history keeps resolving, but they are hidden from
// default listings and cannot be purchased.
type ProductState string

const (
	ProductStateActive  ProductState = "active"
	ProductStateRetired ProductState = "retired"
)

var validProductStates = []ProductState{
	ProductStateActive,
	ProductStateRetired,
}

// String implements fmt.Stringer.
func (p ProductState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductState.
func (p ProductState) IsValid() bool {
	for _, candidate := range validProductStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductState converts raw input into a ProductState.
func ParseProductState(value string) (ProductState, error) {
	for _, candidate := range validProductStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product state %q", value)
}
