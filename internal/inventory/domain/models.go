// Package domain contains the inventory entities and their invariants.
package domain

import (
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	productGIDPattern       = regexp.MustCompile(`^gid://shopify/Product/\d+$`)
	variantGIDPattern       = regexp.MustCompile(`^gid://shopify/ProductVariant/\d+$`)
	locationGIDPattern      = regexp.MustCompile(`^gid://shopify/Location/\d+$`)
	inventoryItemGIDPattern = regexp.MustCompile(`^gid://shopify/InventoryItem/\d+$`)
)

// IsVariantGID reports whether s is a Shopify ProductVariant gid.
func IsVariantGID(s string) bool { return variantGIDPattern.MatchString(s) }

// IsInventoryItemGID reports whether s is a Shopify InventoryItem gid.
func IsInventoryItemGID(s string) bool { return inventoryItemGIDPattern.MatchString(s) }

// IsLocationGID reports whether s is a Shopify Location gid.
func IsLocationGID(s string) bool { return locationGIDPattern.MatchString(s) }

// Location is a physical or warehouse location of one shop.
type Location struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID            snowflake.ID `gorm:"not null;index;uniqueIndex:ux_locations_shop_external,priority:1" json:"shop_id"`
	ShopifyLocationID string       `gorm:"type:text;not null;uniqueIndex:ux_locations_shop_external,priority:2" json:"shopify_location_id"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	Active            bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	InventoryLevels []InventoryLevel `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName sets the database table name.
func (Location) TableName() string { return "locations" }

// BeforeSave enforces location invariants.
func (l *Location) BeforeSave(tx *gorm.DB) error {
	_ = tx
	v := &ValidationErrors{}
	if l.ShopID == 0 {
		v.add("shop_id", "required", "shop is required")
	}
	if l.ShopifyLocationID == "" {
		v.add("shopify_location_id", "required", "shopify location id is required")
	} else if !locationGIDPattern.MatchString(l.ShopifyLocationID) {
		v.add("shopify_location_id", "invalid_gid", "must be a Shopify Location gid")
	}
	if l.Name == "" {
		v.add("name", "required", "name is required")
	}
	return v.orNil()
}

// Variant is one sellable configuration of a product, tracked per shop.
// MinimumQuantity is merchant-configured and must never be overwritten
// by sync data.
type Variant struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID                 snowflake.ID `gorm:"not null;index;uniqueIndex:ux_variants_shop_display,priority:1" json:"shop_id"`
	ShopifyProductID       string       `gorm:"type:text;not null" json:"shopify_product_id"`
	ShopifyVariantID       string       `gorm:"type:text;not null;uniqueIndex:ux_variants_shopify_variant" json:"shopify_variant_id"`
	ShopifyInventoryItemID string       `gorm:"type:text;not null;uniqueIndex:ux_variants_inventory_item" json:"shopify_inventory_item_id"`
	Title                  string       `gorm:"type:text;not null" json:"title"`
	DisplayName            *string      `gorm:"type:text;uniqueIndex:ux_variants_shop_display,priority:2" json:"display_name,omitempty"`
	Tracked                bool         `gorm:"not null;default:true" json:"tracked"`
	MinimumQuantity        int          `gorm:"not null;default:0" json:"minimum_quantity"`
	CreatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	InventoryLevels []InventoryLevel `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName sets the database table name.
func (Variant) TableName() string { return "variants" }

// BeforeSave enforces variant invariants.
func (v *Variant) BeforeSave(tx *gorm.DB) error {
	_ = tx
	errs := &ValidationErrors{}
	if v.ShopID == 0 {
		errs.add("shop_id", "required", "shop is required")
	}
	if v.ShopifyVariantID == "" {
		errs.add("shopify_variant_id", "required", "shopify variant id is required")
	} else if !variantGIDPattern.MatchString(v.ShopifyVariantID) {
		errs.add("shopify_variant_id", "invalid_gid", "must be a Shopify ProductVariant gid")
	}
	if v.ShopifyInventoryItemID == "" {
		errs.add("shopify_inventory_item_id", "required", "shopify inventory item id is required")
	} else if !inventoryItemGIDPattern.MatchString(v.ShopifyInventoryItemID) {
		errs.add("shopify_inventory_item_id", "invalid_gid", "must be a Shopify InventoryItem gid")
	}
	if v.ShopifyProductID != "" && !productGIDPattern.MatchString(v.ShopifyProductID) {
		errs.add("shopify_product_id", "invalid_gid", "must be a Shopify Product gid")
	}
	if v.MinimumQuantity < 0 {
		errs.add("minimum_quantity", "negative", "minimum quantity must be >= 0")
	}
	if v.DisplayName != nil && *v.DisplayName == "" {
		errs.add("display_name", "blank", "display name must be absent or non-empty")
	}
	return errs.orNil()
}

// InventoryLevel is the stock record of one variant at one location.
// HealthPercentage is derived; it is recomputed on every save and cannot
// be set independently of quantity and minimum quantity.
type InventoryLevel struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	LocationID             snowflake.ID `gorm:"not null;index;uniqueIndex:ux_levels_location_variant_item,priority:1" json:"location_id"`
	VariantID              snowflake.ID `gorm:"not null;index;uniqueIndex:ux_levels_location_variant_item,priority:2" json:"variant_id"`
	ShopifyInventoryItemID string       `gorm:"type:text;not null;uniqueIndex:ux_levels_location_variant_item,priority:3" json:"shopify_inventory_item_id"`
	Quantity               int          `gorm:"not null;default:0" json:"quantity"`
	MinimumQuantity        int          `gorm:"not null;default:0" json:"minimum_quantity"`
	HealthPercentage       float64      `gorm:"not null;default:0" json:"health_percentage"`
	CreatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (InventoryLevel) TableName() string { return "inventory_levels" }

// BeforeSave enforces level invariants and recomputes the health metric.
// Cross-entity rules need the owning variant and location rows, so this
// hook reads them through the transaction performing the save.
func (lvl *InventoryLevel) BeforeSave(tx *gorm.DB) error {
	errs := &ValidationErrors{}
	if lvl.LocationID == 0 {
		errs.add("location_id", "required", "location is required")
	}
	if lvl.VariantID == 0 {
		errs.add("variant_id", "required", "variant is required")
	}
	if lvl.MinimumQuantity < 0 {
		errs.add("minimum_quantity", "negative", "minimum quantity must be >= 0")
	}
	if lvl.ShopifyInventoryItemID == "" {
		errs.add("shopify_inventory_item_id", "required", "shopify inventory item id is required")
	} else if !inventoryItemGIDPattern.MatchString(lvl.ShopifyInventoryItemID) {
		errs.add("shopify_inventory_item_id", "invalid_gid", "must be a Shopify InventoryItem gid")
	}
	if err := errs.orNil(); err != nil {
		return err
	}

	var variant Variant
	if err := tx.Session(&gorm.Session{NewDB: true}).Where("id = ?", lvl.VariantID).Take(&variant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errs.add("variant_id", "unknown", "variant does not exist")
			return errs.orNil()
		}
		return err
	}
	var location Location
	if err := tx.Session(&gorm.Session{NewDB: true}).Where("id = ?", lvl.LocationID).Take(&location).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errs.add("location_id", "unknown", "location does not exist")
			return errs.orNil()
		}
		return err
	}

	if variant.ShopID != location.ShopID {
		errs.add("location_id", "cross_shop", "location and variant belong to different shops")
	}
	if lvl.ShopifyInventoryItemID != variant.ShopifyInventoryItemID {
		errs.add("shopify_inventory_item_id", "item_mismatch", "inventory item id is pinned to the owning variant")
	}
	if err := errs.orNil(); err != nil {
		return err
	}

	lvl.HealthPercentage = HealthPercentage(lvl.Quantity, lvl.MinimumQuantity)
	return nil
}
