package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNode *snowflake.Node

func init() {
	var err error
	testNode, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Location{}, &Variant{}, &InventoryLevel{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM inventory_levels")
		db.Exec("DELETE FROM variants")
		db.Exec("DELETE FROM locations")
	})
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, shopID snowflake.ID) *Variant {
	t.Helper()
	suffix := testNode.Generate().Int64()
	v := &Variant{
		ID:                     testNode.Generate(),
		ShopID:                 shopID,
		ShopifyProductID:       fmt.Sprintf("gid://shopify/Product/%d", suffix),
		ShopifyVariantID:       fmt.Sprintf("gid://shopify/ProductVariant/%d", suffix),
		ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", suffix),
		Title:                  "Small / Blue",
		Tracked:                true,
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

func seedLocation(t *testing.T, db *gorm.DB, shopID snowflake.ID) *Location {
	t.Helper()
	l := &Location{
		ID:                testNode.Generate(),
		ShopID:            shopID,
		ShopifyLocationID: fmt.Sprintf("gid://shopify/Location/%d", testNode.Generate().Int64()),
		Name:              "Main warehouse",
		Active:            true,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func validationCodes(t *testing.T, err error) map[string]string {
	t.Helper()
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	codes := make(map[string]string, len(verrs.Errors))
	for _, e := range verrs.Errors {
		codes[e.Field] = e.Code
	}
	return codes
}

func TestLocationValidation(t *testing.T) {
	db := openTestDB(t)

	err := db.Create(&Location{ID: testNode.Generate()}).Error
	codes := validationCodes(t, err)
	assert.Equal(t, "required", codes["shop_id"])
	assert.Equal(t, "required", codes["shopify_location_id"])
	assert.Equal(t, "required", codes["name"])

	err = db.Create(&Location{
		ID:                testNode.Generate(),
		ShopID:            testNode.Generate(),
		ShopifyLocationID: "gid://shopify/Product/1",
		Name:              "Depot",
	}).Error
	codes = validationCodes(t, err)
	assert.Equal(t, "invalid_gid", codes["shopify_location_id"])
}

func TestVariantValidation(t *testing.T) {
	db := openTestDB(t)

	err := db.Create(&Variant{
		ID:                     testNode.Generate(),
		ShopID:                 testNode.Generate(),
		ShopifyVariantID:       "not-a-gid",
		ShopifyInventoryItemID: "gid://shopify/InventoryItem/7",
		Title:                  "One",
		MinimumQuantity:        -1,
	}).Error
	codes := validationCodes(t, err)
	assert.Equal(t, "invalid_gid", codes["shopify_variant_id"])
	assert.Equal(t, "negative", codes["minimum_quantity"])

	blank := ""
	err = db.Create(&Variant{
		ID:                     testNode.Generate(),
		ShopID:                 testNode.Generate(),
		ShopifyVariantID:       "gid://shopify/ProductVariant/7",
		ShopifyInventoryItemID: "gid://shopify/InventoryItem/7",
		Title:                  "One",
		DisplayName:            &blank,
	}).Error
	codes = validationCodes(t, err)
	assert.Equal(t, "blank", codes["display_name"])
}

func TestVariantExternalIDUnique(t *testing.T) {
	db := openTestDB(t)
	shopID := testNode.Generate()
	first := seedVariant(t, db, shopID)

	dup := &Variant{
		ID:                     testNode.Generate(),
		ShopID:                 shopID,
		ShopifyVariantID:       first.ShopifyVariantID,
		ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", testNode.Generate().Int64()),
		Title:                  "Copy",
	}
	err := db.Create(dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestInventoryLevelComputesHealthOnSave(t *testing.T) {
	db := openTestDB(t)
	shopID := testNode.Generate()
	variant := seedVariant(t, db, shopID)
	location := seedLocation(t, db, shopID)

	lvl := &InventoryLevel{
		ID:                     testNode.Generate(),
		LocationID:             location.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: variant.ShopifyInventoryItemID,
		Quantity:               30,
		MinimumQuantity:        10,
	}
	require.NoError(t, db.Create(lvl).Error)
	assert.Equal(t, 200.0, lvl.HealthPercentage)

	lvl.Quantity = 5
	require.NoError(t, db.Save(lvl).Error)
	assert.Equal(t, -50.0, lvl.HealthPercentage)

	var stored InventoryLevel
	require.NoError(t, db.Take(&stored, "id = ?", lvl.ID).Error)
	assert.Equal(t, -50.0, stored.HealthPercentage)
}

func TestInventoryLevelRejectsCrossShop(t *testing.T) {
	db := openTestDB(t)
	variant := seedVariant(t, db, testNode.Generate())
	otherShopLocation := seedLocation(t, db, testNode.Generate())

	err := db.Create(&InventoryLevel{
		ID:                     testNode.Generate(),
		LocationID:             otherShopLocation.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: variant.ShopifyInventoryItemID,
		Quantity:               1,
	}).Error
	codes := validationCodes(t, err)
	assert.Equal(t, "cross_shop", codes["location_id"])
}

func TestInventoryLevelRejectsItemMismatch(t *testing.T) {
	db := openTestDB(t)
	shopID := testNode.Generate()
	variant := seedVariant(t, db, shopID)
	location := seedLocation(t, db, shopID)

	err := db.Create(&InventoryLevel{
		ID:                     testNode.Generate(),
		LocationID:             location.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: "gid://shopify/InventoryItem/999999",
		Quantity:               1,
	}).Error
	codes := validationCodes(t, err)
	assert.Equal(t, "item_mismatch", codes["shopify_inventory_item_id"])
}

func TestInventoryLevelUniquePerLocationVariant(t *testing.T) {
	db := openTestDB(t)
	shopID := testNode.Generate()
	variant := seedVariant(t, db, shopID)
	location := seedLocation(t, db, shopID)

	base := InventoryLevel{
		LocationID:             location.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: variant.ShopifyInventoryItemID,
		Quantity:               4,
	}

	first := base
	first.ID = testNode.Generate()
	require.NoError(t, db.Create(&first).Error)

	second := base
	second.ID = testNode.Generate()
	err := db.Create(&second).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
