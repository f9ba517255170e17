package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/stocksense/internal/config"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	invrepo "github.com/smallbiznis/stocksense/internal/inventory/repository"
	invservice "github.com/smallbiznis/stocksense/internal/inventory/service"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	shoprepo "github.com/smallbiznis/stocksense/internal/shop/repository"
	shopservice "github.com/smallbiznis/stocksense/internal/shop/service"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	syncrepo "github.com/smallbiznis/stocksense/internal/sync/repository"
	syncservice "github.com/smallbiznis/stocksense/internal/sync/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNode *snowflake.Node

func init() {
	gin.SetMode(gin.TestMode)
	var err error
	testNode, err = snowflake.NewNode(4)
	if err != nil {
		panic(err)
	}
}

type fetcherStub struct {
	nodes []syncdomain.VariantNode
	err   error
}

func (f *fetcherStub) FetchVariants(context.Context, shopdomain.Shop, []string) ([]syncdomain.VariantNode, error) {
	return f.nodes, f.err
}

type testEnv struct {
	db     *gorm.DB
	server *Server
}

func newTestEnv(t *testing.T, fetcher syncdomain.VariantFetcher) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.Shop{},
		&invdomain.Location{},
		&invdomain.Variant{},
		&invdomain.InventoryLevel{},
		&syncdomain.SyncRun{},
	))
	t.Cleanup(func() {
		db.Exec("DELETE FROM sync_runs")
		db.Exec("DELETE FROM inventory_levels")
		db.Exec("DELETE FROM variants")
		db.Exec("DELETE FROM locations")
		db.Exec("DELETE FROM shops")
	})

	log := zap.NewNop()
	cfg := config.Config{HTTPAddr: ":0"}
	if fetcher == nil {
		fetcher = &fetcherStub{}
	}

	invRepo := invrepo.Provide()
	shopSvc := shopservice.New(shopservice.Params{DB: db, Log: log, GenID: testNode, Repo: shoprepo.Provide()})
	invSvc := invservice.New(invservice.Params{DB: db, Log: log, Repo: invRepo})
	syncRepo := syncrepo.Provide()
	reconciler := syncservice.NewReconciler(syncservice.ReconcilerParams{DB: db, Log: log, GenID: testNode, Repo: invRepo})
	syncSvc := syncservice.New(syncservice.Params{
		Config:     cfg,
		DB:         db,
		Log:        log,
		GenID:      testNode,
		Fetcher:    fetcher,
		Reconciler: reconciler,
		Repo:       syncRepo,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		DB:       db,
		ShopSvc:  shopSvc,
		InvSvc:   invSvc,
		InvRepo:  invRepo,
		SyncSvc:  syncSvc,
		SyncRepo: syncRepo,
	})

	return &testEnv{db: db, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func installShop(t *testing.T, env *testEnv) shopdomain.Shop {
	t.Helper()
	domainName := fmt.Sprintf("shop-%d.myshopify.com", testNode.Generate().Int64())
	rec := env.do(t, http.MethodPost, "/api/v1/shops", gin.H{
		"domain":       domainName,
		"access_token": "shpat_test",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var shop shopdomain.Shop
	decodeData(t, rec, &shop)
	return shop
}

func TestInstallShop(t *testing.T) {
	env := newTestEnv(t, nil)
	shop := installShop(t, env)
	assert.NotZero(t, shop.ID)
	assert.True(t, shop.Active)

	rec := env.do(t, http.MethodGet, "/api/v1/shops", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shops []shopdomain.Shop
	decodeData(t, rec, &shops)
	require.Len(t, shops, 1)
	assert.Equal(t, shop.ID, shops[0].ID)
}

func TestInstallShopValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/shops", gin.H{"domain": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetShopNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/shops/"+testNode.Generate().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/shops/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetVariantMinimum(t *testing.T) {
	env := newTestEnv(t, nil)
	shop := installShop(t, env)

	suffix := testNode.Generate().Int64()
	variant := invdomain.Variant{
		ID:                     testNode.Generate(),
		ShopID:                 shop.ID,
		ShopifyVariantID:       fmt.Sprintf("gid://shopify/ProductVariant/%d", suffix),
		ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", suffix),
		Title:                  "Small",
		Tracked:                true,
	}
	require.NoError(t, env.db.Create(&variant).Error)

	rec := env.do(t, http.MethodPatch, "/api/v1/variants/"+variant.ID.String()+"/minimum", gin.H{
		"minimum_quantity": 12,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated invdomain.Variant
	decodeData(t, rec, &updated)
	assert.Equal(t, 12, updated.MinimumQuantity)

	rec = env.do(t, http.MethodPatch, "/api/v1/variants/"+variant.ID.String()+"/minimum", gin.H{
		"minimum_quantity": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/variants/"+testNode.Generate().String()+"/minimum", gin.H{
		"minimum_quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncShopVariants(t *testing.T) {
	suffix := testNode.Generate().Int64()
	node := syncdomain.VariantNode{
		ID:    fmt.Sprintf("gid://shopify/ProductVariant/%d", suffix),
		Title: "Small",
		InventoryItem: syncdomain.ItemNode{
			ID:      fmt.Sprintf("gid://shopify/InventoryItem/%d", suffix),
			Tracked: true,
			InventoryLevels: syncdomain.LevelConnection{Edges: []syncdomain.LevelEdge{
				{Node: syncdomain.LevelNode{
					Location:   syncdomain.LocationNode{ID: fmt.Sprintf("gid://shopify/Location/%d", suffix), Name: "Main", IsActive: true},
					Quantities: []syncdomain.Quantity{{Name: "available", Quantity: 9}},
				}},
			}},
		},
	}
	env := newTestEnv(t, &fetcherStub{nodes: []syncdomain.VariantNode{node}})
	shop := installShop(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/shops/"+shop.ID.String()+"/sync", gin.H{
		"variant_ids": []string{node.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run syncdomain.SyncRun
	decodeData(t, rec, &run)
	assert.Equal(t, syncdomain.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.Reconciled)

	var level invdomain.InventoryLevel
	require.NoError(t, env.db.Take(&level).Error)
	assert.Equal(t, 9, level.Quantity)

	rec = env.do(t, http.MethodGet, "/api/v1/shops/"+shop.ID.String()+"/sync-runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []syncdomain.SyncRun
	decodeData(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
}

func TestSyncShopVariantsFetchFailure(t *testing.T) {
	env := newTestEnv(t, &fetcherStub{err: syncdomain.FetchFailed("post query", nil)})
	shop := installShop(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/shops/"+shop.ID.String()+"/sync", gin.H{
		"variant_ids": []string{"gid://shopify/ProductVariant/1"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
}

func TestSyncShopVariantsEmptyBatch(t *testing.T) {
	env := newTestEnv(t, nil)
	shop := installShop(t, env)

	// No body and no tracked variants leaves nothing to sync.
	rec := env.do(t, http.MethodPost, "/api/v1/shops/"+shop.ID.String()+"/sync", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestListInventoryLevelsLowStock(t *testing.T) {
	env := newTestEnv(t, nil)
	shop := installShop(t, env)

	suffix := testNode.Generate().Int64()
	variant := invdomain.Variant{
		ID:                     testNode.Generate(),
		ShopID:                 shop.ID,
		ShopifyVariantID:       fmt.Sprintf("gid://shopify/ProductVariant/%d", suffix),
		ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", suffix),
		Title:                  "Small",
	}
	require.NoError(t, env.db.Create(&variant).Error)
	location := invdomain.Location{
		ID:                testNode.Generate(),
		ShopID:            shop.ID,
		ShopifyLocationID: fmt.Sprintf("gid://shopify/Location/%d", suffix),
		Name:              "Main",
		Active:            true,
	}
	require.NoError(t, env.db.Create(&location).Error)

	healthy := invdomain.InventoryLevel{
		ID:                     testNode.Generate(),
		LocationID:             location.ID,
		VariantID:              variant.ID,
		ShopifyInventoryItemID: variant.ShopifyInventoryItemID,
		Quantity:               20,
		MinimumQuantity:        5,
	}
	require.NoError(t, env.db.Create(&healthy).Error)

	otherSuffix := testNode.Generate().Int64()
	lowVariant := invdomain.Variant{
		ID:                     testNode.Generate(),
		ShopID:                 shop.ID,
		ShopifyVariantID:       fmt.Sprintf("gid://shopify/ProductVariant/%d", otherSuffix),
		ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", otherSuffix),
		Title:                  "Large",
	}
	require.NoError(t, env.db.Create(&lowVariant).Error)
	low := invdomain.InventoryLevel{
		ID:                     testNode.Generate(),
		LocationID:             location.ID,
		VariantID:              lowVariant.ID,
		ShopifyInventoryItemID: lowVariant.ShopifyInventoryItemID,
		Quantity:               2,
		MinimumQuantity:        5,
	}
	require.NoError(t, env.db.Create(&low).Error)

	rec := env.do(t, http.MethodGet, "/api/v1/shops/"+shop.ID.String()+"/inventory-levels?low_stock=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Levels []invdomain.InventoryLevel `json:"inventory_levels"`
	}
	decodeData(t, rec, &resp)
	require.Len(t, resp.Levels, 1)
	assert.Equal(t, low.ID, resp.Levels[0].ID)
	assert.Equal(t, -60.0, resp.Levels[0].HealthPercentage)
}
