package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkotlyarov/shoplite-backend/api/middleware"
	"github.com/dkotlyarov/shoplite-backend/api/responses"
	"github.com/dkotlyarov/shoplite-backend/api/validators"
	"github.com/dkotlyarov/shoplite-backend/internal/products"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/logger"
)

type createProductRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description,omitempty"`
	Brand       *string         `json:"brand,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	StockQty    int             `json:"stock_qty" validate:"min=0"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
}

type updateProductRequest struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Brand         *string          `json:"brand,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQty      *int             `json:"stock_qty,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	ClearCategory bool             `json:"clear_category,omitempty"`
	State         *string          `json:"state,omitempty"`
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), products.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Brand:       req.Brand,
			Price:       req.Price,
			StockQty:    req.StockQty,
			CategoryID:  req.CategoryID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := listInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID, staffRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := products.UpdateInput{
			Title:         req.Title,
			Description:   req.Description,
			Brand:         req.Brand,
			Price:         req.Price,
			StockQty:      req.StockQty,
			CategoryID:    req.CategoryID,
			ClearCategory: req.ClearCategory,
		}
		if req.State != nil {
			state, parseErr := enums.ParseProductState(*req.State)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product state"))
				return
			}
			input.State = &state
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Retire(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "retired"})
	}
}

func listInputFromRequest(r *http.Request) (*products.ListInput, error) {
	params, err := paginationFromRequest(r)
	if err != nil {
		return nil, err
	}

	filters := products.ListFilters{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	if brand := strings.TrimSpace(r.URL.Query().Get("brand")); brand != "" {
		filters.Brand = &brand
	}
	categoryID, err := validators.ParseQueryUUID(r, "category_id")
	if err != nil {
		return nil, err
	}
	filters.CategoryID = categoryID

	if raw := strings.TrimSpace(r.URL.Query().Get("price_min")); raw != "" {
		value, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min must be a decimal")
		}
		filters.PriceMin = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_max")); raw != "" {
		value, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_max must be a decimal")
		}
		filters.PriceMax = &value
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("availability")); raw != "" {
		availability, parseErr := enums.ParseAvailability(raw)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid availability filter")
		}
		filters.Availability = &availability
	}

	includeAll, err := validators.ParseQueryBool(r, "is_all", false)
	if err != nil {
		return nil, err
	}
	// Retired products are visible only to staff.
	filters.IncludeAll = includeAll && staffRequest(r)

	var sort enums.SortKey
	if raw := strings.TrimSpace(r.URL.Query().Get("sort")); raw != "" {
		parsed, parseErr := enums.ParseSortKey(raw)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort key")
		}
		sort = parsed
	}

	return &products.ListInput{
		Filters:    filters,
		Sort:       sort,
		Pagination: params,
	}, nil
}

func staffRequest(r *http.Request) bool {
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return false
	}
	return role.IsStaff()
}
