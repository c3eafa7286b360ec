package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dkotlyarov/shoplite-backend/api/middleware"
	"github.com/dkotlyarov/shoplite-backend/api/validators"
	"github.com/dkotlyarov/shoplite-backend/internal/orders"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

func principalFromRequest(r *http.Request) (orders.Principal, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return orders.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing principal")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing principal")
	}
	return orders.Principal{UserID: userID, Role: role}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return value, nil
}

func paginationFromRequest(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	pageSize, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: pageSize}, nil
}
