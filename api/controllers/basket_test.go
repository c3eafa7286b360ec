package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/dkotlyarov/shoplite-backend/api/middleware"
	basketsvc "github.com/dkotlyarov/shoplite-backend/internal/basket"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
)

type stubBasketService struct {
	basketsvc.Service
	snapshot *basketsvc.BasketDTO
	err      error
}

func (s stubBasketService) Get(ctx context.Context, userID uuid.UUID) (*basketsvc.BasketDTO, error) {
	return s.snapshot, s.err
}

func (s stubBasketService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*basketsvc.BasketDTO, error) {
	return s.snapshot, s.err
}

func authedContext(ctx context.Context, role enums.UserRole) context.Context {
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	return middleware.WithRole(ctx, string(role))
}

func TestGetBasketSuccess(t *testing.T) {
	snapshot := &basketsvc.BasketDTO{ID: uuid.New()}
	handler := GetBasket(stubBasketService{snapshot: snapshot}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/basket", nil)
	req = req.WithContext(authedContext(req.Context(), enums.UserRoleUser))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data basketsvc.BasketDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != snapshot.ID {
		t.Fatalf("unexpected basket id: %s", envelope.Data.ID)
	}
}

func TestGetBasketMissingPrincipal(t *testing.T) {
	handler := GetBasket(stubBasketService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/basket", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddBasketItemInsufficientStock(t *testing.T) {
	failure := pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
		WithDetails(map[string]any{"available": 2})
	handler := AddBasketItem(stubBasketService{err: failure}, nil)

	body, _ := json.Marshal(map[string]any{
		"product_id": uuid.NewString(),
		"quantity":   5,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", bytes.NewReader(body))
	req = req.WithContext(authedContext(req.Context(), enums.UserRoleUser))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
	if envelope.Error.Details["available"] != float64(2) {
		t.Fatalf("unexpected available quantity: %v", envelope.Error.Details["available"])
	}
}

func TestAddBasketItemRejectsMalformedBody(t *testing.T) {
	handler := AddBasketItem(stubBasketService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", bytes.NewReader([]byte(`{"quantity":`)))
	req = req.WithContext(authedContext(req.Context(), enums.UserRoleUser))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
