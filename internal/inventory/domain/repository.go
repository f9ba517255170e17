package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListLevelFilter narrows inventory level listings.
type ListLevelFilter struct {
	LocationID snowflake.ID
	VariantID  snowflake.ID
	// LowStock keeps only levels whose quantity is below their minimum.
	LowStock bool
}

type Repository interface {
	FindLocationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Location, error)
	FindLocationByExternalID(ctx context.Context, db *gorm.DB, shopID snowflake.ID, shopifyLocationID string) (*Location, error)
	SaveLocation(ctx context.Context, db *gorm.DB, location *Location) error
	ListLocations(ctx context.Context, db *gorm.DB, shopID snowflake.ID) ([]*Location, error)

	FindVariantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Variant, error)
	FindVariantByExternalID(ctx context.Context, db *gorm.DB, shopID snowflake.ID, shopifyVariantID string) (*Variant, error)
	SaveVariant(ctx context.Context, db *gorm.DB, variant *Variant) error
	ListVariants(ctx context.Context, db *gorm.DB, shopID snowflake.ID, page pagination.Pagination) ([]*Variant, error)
	ListTrackedVariantIDs(ctx context.Context, db *gorm.DB, shopID snowflake.ID) ([]string, error)

	FindLevelByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InventoryLevel, error)
	FindLevel(ctx context.Context, db *gorm.DB, variantID, locationID snowflake.ID) (*InventoryLevel, error)
	SaveLevel(ctx context.Context, db *gorm.DB, level *InventoryLevel) error
	ListLevels(ctx context.Context, db *gorm.DB, shopID snowflake.ID, filter ListLevelFilter, page pagination.Pagination) ([]*InventoryLevel, error)
	ListLevelsByVariant(ctx context.Context, db *gorm.DB, variantID snowflake.ID) ([]*InventoryLevel, error)
}
