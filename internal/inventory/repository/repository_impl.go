package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLocationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Location, error) {
	var location domain.Location
	err := db.WithContext(ctx).Where("id = ?", id).Take(&location).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

func (r *repo) FindLocationByExternalID(ctx context.Context, db *gorm.DB, shopID snowflake.ID, shopifyLocationID string) (*domain.Location, error) {
	var location domain.Location
	err := db.WithContext(ctx).
		Where("shop_id = ? AND shopify_location_id = ?", shopID, shopifyLocationID).
		Take(&location).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

func (r *repo) SaveLocation(ctx context.Context, db *gorm.DB, location *domain.Location) error {
	return db.WithContext(ctx).Save(location).Error
}

func (r *repo) ListLocations(ctx context.Context, db *gorm.DB, shopID snowflake.ID) ([]*domain.Location, error) {
	var locations []*domain.Location
	err := db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at asc, id asc").
		Find(&locations).Error
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *repo) FindVariantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Variant, error) {
	var variant domain.Variant
	err := db.WithContext(ctx).Where("id = ?", id).Take(&variant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *repo) FindVariantByExternalID(ctx context.Context, db *gorm.DB, shopID snowflake.ID, shopifyVariantID string) (*domain.Variant, error) {
	var variant domain.Variant
	err := db.WithContext(ctx).
		Where("shop_id = ? AND shopify_variant_id = ?", shopID, shopifyVariantID).
		Take(&variant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *repo) SaveVariant(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Save(variant).Error
}

func (r *repo) ListVariants(ctx context.Context, db *gorm.DB, shopID snowflake.ID, page pagination.Pagination) ([]*domain.Variant, error) {
	var variants []*domain.Variant
	stmt := db.WithContext(ctx).
		Model(&domain.Variant{}).
		Where("shop_id = ?", shopID)
	stmt, err := applyCursor(stmt, page)
	if err != nil {
		return nil, err
	}
	if err := stmt.Order("created_at asc, id asc").Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repo) ListTrackedVariantIDs(ctx context.Context, db *gorm.DB, shopID snowflake.ID) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Variant{}).
		Where("shop_id = ? AND tracked = ?", shopID, true).
		Order("id asc").
		Pluck("shopify_variant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) FindLevelByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InventoryLevel, error) {
	var level domain.InventoryLevel
	err := db.WithContext(ctx).Where("id = ?", id).Take(&level).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *repo) FindLevel(ctx context.Context, db *gorm.DB, variantID, locationID snowflake.ID) (*domain.InventoryLevel, error) {
	var level domain.InventoryLevel
	err := db.WithContext(ctx).
		Where("variant_id = ? AND location_id = ?", variantID, locationID).
		Take(&level).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *repo) SaveLevel(ctx context.Context, db *gorm.DB, level *domain.InventoryLevel) error {
	return db.WithContext(ctx).Save(level).Error
}

func (r *repo) ListLevels(ctx context.Context, db *gorm.DB, shopID snowflake.ID, filter domain.ListLevelFilter, page pagination.Pagination) ([]*domain.InventoryLevel, error) {
	var levels []*domain.InventoryLevel
	stmt := db.WithContext(ctx).
		Model(&domain.InventoryLevel{}).
		Joins("JOIN variants ON variants.id = inventory_levels.variant_id").
		Where("variants.shop_id = ?", shopID)
	if filter.LocationID != 0 {
		stmt = stmt.Where("inventory_levels.location_id = ?", filter.LocationID)
	}
	if filter.VariantID != 0 {
		stmt = stmt.Where("inventory_levels.variant_id = ?", filter.VariantID)
	}
	if filter.LowStock {
		stmt = stmt.Where("inventory_levels.quantity < inventory_levels.minimum_quantity")
	}
	stmt, err := applyCursorQualified(stmt, page, "inventory_levels")
	if err != nil {
		return nil, err
	}
	if err := stmt.Order("inventory_levels.created_at asc, inventory_levels.id asc").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *repo) ListLevelsByVariant(ctx context.Context, db *gorm.DB, variantID snowflake.ID) ([]*domain.InventoryLevel, error) {
	var levels []*domain.InventoryLevel
	err := db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("id asc").
		Find(&levels).Error
	if err != nil {
		return nil, err
	}
	return levels, nil
}

func applyCursor(stmt *gorm.DB, page pagination.Pagination) (*gorm.DB, error) {
	return applyCursorQualified(stmt, page, "")
}

// applyCursorQualified over-fetches one row past the page size so the
// service layer can derive has_more without a count query.
func applyCursorQualified(stmt *gorm.DB, page pagination.Pagination, table string) (*gorm.DB, error) {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(
			prefix+"created_at > ? OR ("+prefix+"created_at = ? AND "+prefix+"id > ?)",
			createdAt, createdAt, id,
		)
	}
	size := page.PageSize
	if size <= 0 {
		size = 50
	}
	return stmt.Limit(size + 1), nil
}
