package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Query        string              `json:"q,omitempty"`
	Brand        *string             `json:"brand,omitempty"`
	CategoryID   *uuid.UUID          `json:"category_id,omitempty"`
	PriceMin     *decimal.Decimal    `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal    `json:"price_max,omitempty"`
	Availability *enums.Availability `json:"availability,omitempty"`
	// IncludeAll lists retired products too. Staff-only.
	IncludeAll bool `json:"include_all,omitempty"`
}

// ListInput captures the inputs needed to paginate/filter products.
type ListInput struct {
	Filters    ListFilters
	Sort       enums.SortKey
	Pagination pagination.Params
}
