package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/stocksense/pkg/db/pagination"
)

type UpdateLocationRequest struct {
	ID     string
	Name   *string
	Active *bool
}

type SetVariantMinimumRequest struct {
	ID              string
	MinimumQuantity int
}

type SetLevelMinimumRequest struct {
	ID              string
	MinimumQuantity int
}

type ListVariantsRequest struct {
	ShopID string
	pagination.Pagination
}

type ListVariantsResponse struct {
	pagination.PageInfo
	Variants []Variant `json:"variants"`
}

type ListLevelsRequest struct {
	ShopID     string
	LocationID string
	VariantID  string
	LowStock   bool
	pagination.Pagination
}

type ListLevelsResponse struct {
	pagination.PageInfo
	Levels []InventoryLevel `json:"inventory_levels"`
}

// Service exposes the merchant-facing inventory operations. Sync-driven
// writes go through the reconciliation engine instead.
type Service interface {
	ListLocations(ctx context.Context, shopID string) ([]Location, error)
	// UpdateLocation edits merchant-owned location attributes. Sync only
	// sets these at creation time, so edits here are never clobbered.
	UpdateLocation(context.Context, UpdateLocationRequest) (Location, error)

	ListVariants(context.Context, ListVariantsRequest) (ListVariantsResponse, error)
	// SetVariantMinimum updates the merchant-configured threshold and
	// re-derives it on every level that was still inheriting the old
	// variant default.
	SetVariantMinimum(context.Context, SetVariantMinimumRequest) (Variant, error)

	ListLevels(context.Context, ListLevelsRequest) (ListLevelsResponse, error)
	SetLevelMinimum(context.Context, SetLevelMinimumRequest) (InventoryLevel, error)
}

var (
	ErrInvalidShop    = errors.New("invalid_shop")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidMinimum = errors.New("invalid_minimum_quantity")
	ErrNotFound       = errors.New("not_found")
)
