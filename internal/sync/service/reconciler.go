package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/internal/observability/logger"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	"github.com/smallbiznis/stocksense/internal/sync/domain"
	"github.com/smallbiznis/stocksense/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReconcilerParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  invdomain.Repository
}

// Reconciler applies fetched variant nodes to the local entity store.
type Reconciler struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  invdomain.Repository
}

func NewReconciler(p ReconcilerParams) domain.Reconciler {
	return &Reconciler{
		db:    p.DB,
		log:   p.Log.Named("sync.reconciler"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Reconcile processes each node in its own transaction, so one bad node
// never rolls back its siblings. Malformed nodes are skipped, not failed.
func (r *Reconciler) Reconcile(ctx context.Context, shop shopdomain.Shop, nodes []domain.VariantNode, opts domain.ReconcileOptions) []domain.ItemResult {
	log := logger.WithContext(ctx, r.log).With(zap.String("shop_domain", shop.Domain))
	results := make([]domain.ItemResult, 0, len(nodes))

	for _, node := range nodes {
		if reason := malformedReason(node); reason != "" {
			log.Debug("skipping malformed node",
				zap.String("variant_gid", node.ID),
				zap.String("reason", reason),
			)
			results = append(results, domain.ItemResult{
				VariantID: node.ID,
				Outcome:   domain.ItemOutcomeSkipped,
			})
			continue
		}

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.applyNode(ctx, tx, shop, node)
		})
		if err != nil {
			log.Warn("variant reconcile failed",
				zap.String("variant_gid", node.ID),
				zap.Error(err),
			)
			results = append(results, domain.ItemResult{
				VariantID: node.ID,
				Outcome:   domain.ItemOutcomeFailed,
				Err:       domain.ReconcileFailed("reconcile variant "+node.ID, err),
			})
			if !opts.ContinueOnError {
				return results
			}
			continue
		}

		results = append(results, domain.ItemResult{
			VariantID: node.ID,
			Outcome:   domain.ItemOutcomeReconciled,
		})
	}

	return results
}

// malformedReason returns a non-empty reason when the node cannot be
// reconciled. Null nodes from unresolvable ids land here as empty structs.
func malformedReason(node domain.VariantNode) string {
	switch {
	case node.ID == "":
		return "null_node"
	case !invdomain.IsVariantGID(node.ID):
		return "bad_variant_gid"
	case node.InventoryItem.ID == "":
		return "missing_inventory_item"
	case !invdomain.IsInventoryItemGID(node.InventoryItem.ID):
		return "bad_inventory_item_gid"
	default:
		return ""
	}
}

func (r *Reconciler) applyNode(ctx context.Context, tx *gorm.DB, shop shopdomain.Shop, node domain.VariantNode) error {
	variant, err := r.upsertVariant(ctx, tx, shop, node)
	if err != nil {
		return err
	}

	for _, edge := range node.InventoryItem.InventoryLevels.Edges {
		level := edge.Node
		if level.Location.ID == "" || !invdomain.IsLocationGID(level.Location.ID) {
			r.log.Debug("skipping level with malformed location",
				zap.String("variant_gid", node.ID),
				zap.String("location_gid", level.Location.ID),
			)
			continue
		}

		location, err := r.findOrCreateLocation(ctx, tx, shop, level.Location)
		if err != nil {
			return err
		}
		if err := r.upsertLevel(ctx, tx, variant, location, level); err != nil {
			return err
		}
	}

	return nil
}

// upsertVariant creates or refreshes the variant from sync data. Lookup
// and retry are scoped to the shop, so a variant GID already owned by a
// different shop stays a duplicate-key failure for this item instead of
// rewriting the foreign row.
func (r *Reconciler) upsertVariant(ctx context.Context, tx *gorm.DB, shop shopdomain.Shop, node domain.VariantNode) (*invdomain.Variant, error) {
	existing, err := r.repo.FindVariantByExternalID(ctx, tx, shop.ID, node.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if existing != nil {
		if err := r.refreshVariant(ctx, tx, existing, node, now); err != nil {
			return nil, err
		}
		return existing, nil
	}

	variant := &invdomain.Variant{
		ID:                     r.genID.Generate(),
		ShopID:                 shop.ID,
		ShopifyProductID:       node.Product.ID,
		ShopifyVariantID:       node.ID,
		ShopifyInventoryItemID: node.InventoryItem.ID,
		Title:                  node.Title,
		DisplayName:            optional(node.DisplayName),
		Tracked:                node.InventoryItem.Tracked,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := r.repo.SaveVariant(ctx, tx, variant); err != nil {
		// Another sync of the same shop can win the unique index race;
		// retry once against the row it created.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := r.repo.FindVariantByExternalID(ctx, tx, shop.ID, node.ID)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				if err := r.refreshVariant(ctx, tx, winner, node, now); err != nil {
					return nil, err
				}
				return winner, nil
			}
		}
		return nil, err
	}
	return variant, nil
}

// refreshVariant applies sync fields to an existing variant, leaving the
// merchant-configured minimum quantity alone. When the inventory item id
// changed, every level of the variant is rewritten in the same
// transaction; levels at locations absent from this response must not
// keep the old item id.
func (r *Reconciler) refreshVariant(ctx context.Context, tx *gorm.DB, variant *invdomain.Variant, node domain.VariantNode, now time.Time) error {
	previousItemID := variant.ShopifyInventoryItemID
	variant.ShopifyProductID = node.Product.ID
	variant.ShopifyInventoryItemID = node.InventoryItem.ID
	variant.Title = node.Title
	variant.DisplayName = optional(node.DisplayName)
	variant.Tracked = node.InventoryItem.Tracked
	variant.UpdatedAt = now
	if err := r.repo.SaveVariant(ctx, tx, variant); err != nil {
		return err
	}
	if previousItemID == node.InventoryItem.ID {
		return nil
	}

	levels, err := r.repo.ListLevelsByVariant(ctx, tx, variant.ID)
	if err != nil {
		return err
	}
	for _, level := range levels {
		if level.ShopifyInventoryItemID == node.InventoryItem.ID {
			continue
		}
		level.ShopifyInventoryItemID = node.InventoryItem.ID
		level.UpdatedAt = now
		if err := r.repo.SaveLevel(ctx, tx, level); err != nil {
			return err
		}
	}
	return nil
}

// findOrCreateLocation fills name and active from sync data at creation
// only; after that those fields belong to the merchant.
func (r *Reconciler) findOrCreateLocation(ctx context.Context, tx *gorm.DB, shop shopdomain.Shop, node domain.LocationNode) (*invdomain.Location, error) {
	existing, err := r.repo.FindLocationByExternalID(ctx, tx, shop.ID, node.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	location := &invdomain.Location{
		ID:                r.genID.Generate(),
		ShopID:            shop.ID,
		ShopifyLocationID: node.ID,
		Name:              node.Name,
		Active:            node.IsActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.repo.SaveLocation(ctx, tx, location); err != nil {
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := r.repo.FindLocationByExternalID(ctx, tx, shop.ID, node.ID)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return location, nil
}

// upsertLevel writes the synced quantity. The minimum quantity is never
// taken from sync data: an existing level keeps its own, a new level
// inherits the variant default.
func (r *Reconciler) upsertLevel(ctx context.Context, tx *gorm.DB, variant *invdomain.Variant, location *invdomain.Location, node domain.LevelNode) error {
	available := node.Available()
	now := time.Now().UTC()

	existing, err := r.repo.FindLevel(ctx, tx, variant.ID, location.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Quantity = available
		existing.ShopifyInventoryItemID = variant.ShopifyInventoryItemID
		existing.UpdatedAt = now
		return r.repo.SaveLevel(ctx, tx, existing)
	}

	level := &invdomain.InventoryLevel{
		ID:                     r.genID.Generate(),
		LocationID:             location.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: variant.ShopifyInventoryItemID,
		Quantity:               available,
		MinimumQuantity:        variant.MinimumQuantity,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := r.repo.SaveLevel(ctx, tx, level); err != nil {
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := r.repo.FindLevel(ctx, tx, variant.ID, location.ID)
			if findErr != nil {
				return findErr
			}
			if winner != nil {
				winner.Quantity = available
				winner.ShopifyInventoryItemID = variant.ShopifyInventoryItemID
				winner.UpdatedAt = now
				return r.repo.SaveLevel(ctx, tx, winner)
			}
		}
		return err
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
