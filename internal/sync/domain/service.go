package domain

import (
	"context"

	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
)

// VariantFetcher retrieves variant nodes from the Shopify Admin API. One
// call covers the whole id batch; implementations live in internal/shopify
// and in test doubles.
type VariantFetcher interface {
	FetchVariants(ctx context.Context, shop shopdomain.Shop, variantIDs []string) ([]VariantNode, error)
}

const (
	ItemOutcomeReconciled = "reconciled"
	ItemOutcomeSkipped    = "skipped"
	ItemOutcomeFailed     = "failed"
)

// ItemResult is the per-variant outcome of a reconcile pass.
type ItemResult struct {
	VariantID string `json:"variant_id"`
	Outcome   string `json:"outcome"`
	Err       error  `json:"-"`
}

// ReconcileOptions controls failure handling across nodes.
type ReconcileOptions struct {
	// ContinueOnError keeps processing after a failed node. When false the
	// pass stops at the first failure; nodes committed before it stay
	// committed.
	ContinueOnError bool
}

// Reconciler applies fetched variant nodes to local state, one transaction
// per node.
type Reconciler interface {
	Reconcile(ctx context.Context, shop shopdomain.Shop, nodes []VariantNode, opts ReconcileOptions) []ItemResult
}

// SyncRequest asks for a reconcile of the named variants of one shop.
type SyncRequest struct {
	Shop       shopdomain.Shop
	VariantIDs []string
	Trigger    string
}

// Service orchestrates a variant sync: validate, fetch, reconcile, record.
type Service interface {
	SyncVariants(ctx context.Context, req SyncRequest) (*SyncRun, error)
}
