package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/stocksense/internal/clock"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	invrepo "github.com/smallbiznis/stocksense/internal/inventory/repository"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNode *snowflake.Node

func init() {
	var err error
	testNode, err = snowflake.NewNode(3)
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
	require.NoError(t, db.AutoMigrate(&shopdomain.Shop{}, &invdomain.Location{}, &invdomain.Variant{}, &invdomain.InventoryLevel{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM inventory_levels")
		db.Exec("DELETE FROM variants")
		db.Exec("DELETE FROM locations")
		db.Exec("DELETE FROM shops")
	})
	return db
}

type shopServiceStub struct {
	shops []shopdomain.Shop
	err   error
}

func (s *shopServiceStub) Install(context.Context, shopdomain.InstallRequest) (shopdomain.Shop, error) {
	return shopdomain.Shop{}, errors.New("not implemented")
}

func (s *shopServiceStub) RotateToken(context.Context, shopdomain.RotateTokenRequest) (shopdomain.Shop, error) {
	return shopdomain.Shop{}, errors.New("not implemented")
}

func (s *shopServiceStub) GetByID(context.Context, shopdomain.GetShopRequest) (shopdomain.Shop, error) {
	return shopdomain.Shop{}, errors.New("not implemented")
}

func (s *shopServiceStub) GetByDomain(context.Context, string) (shopdomain.Shop, error) {
	return shopdomain.Shop{}, errors.New("not implemented")
}

func (s *shopServiceStub) List(context.Context) ([]shopdomain.Shop, error) {
	return s.shops, s.err
}

type syncCall struct {
	shopDomain string
	variantIDs []string
	trigger    string
}

type syncServiceStub struct {
	calls []syncCall
	err   error
}

func (s *syncServiceStub) SyncVariants(_ context.Context, req syncdomain.SyncRequest) (*syncdomain.SyncRun, error) {
	s.calls = append(s.calls, syncCall{
		shopDomain: req.Shop.Domain,
		variantIDs: req.VariantIDs,
		trigger:    req.Trigger,
	})
	if s.err != nil {
		return nil, s.err
	}
	return &syncdomain.SyncRun{}, nil
}

func seedShopWithVariants(t *testing.T, db *gorm.DB, active bool, tracked, untracked int) shopdomain.Shop {
	t.Helper()
	shop := shopdomain.Shop{
		ID:          testNode.Generate(),
		Domain:      fmt.Sprintf("shop-%d.myshopify.com", testNode.Generate().Int64()),
		Slug:        "test",
		AccessToken: "shpat_test",
		Active:      active,
	}
	require.NoError(t, db.Create(&shop).Error)

	for i := 0; i < tracked+untracked; i++ {
		suffix := testNode.Generate().Int64()
		require.NoError(t, db.Create(&invdomain.Variant{
			ID:                     testNode.Generate(),
			ShopID:                 shop.ID,
			ShopifyVariantID:       fmt.Sprintf("gid://shopify/ProductVariant/%d", suffix),
			ShopifyInventoryItemID: fmt.Sprintf("gid://shopify/InventoryItem/%d", suffix),
			Title:                  "Variant",
			Tracked:                i < tracked,
		}).Error)
	}
	return shop
}

func newTestScheduler(t *testing.T, db *gorm.DB, shopSvc shopdomain.Service, syncSvc syncdomain.Service, cfg Config) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Now()),
		ShopSvc: shopSvc,
		SyncSvc: syncSvc,
		InvRepo: invrepo.Provide(),
		Config:  cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestSyncSweepSyncsTrackedVariants(t *testing.T) {
	db := openTestDB(t)
	shop := seedShopWithVariants(t, db, true, 3, 2)

	syncSvc := &syncServiceStub{}
	sched := newTestScheduler(t, db, &shopServiceStub{shops: []shopdomain.Shop{shop}}, syncSvc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))

	require.Len(t, syncSvc.calls, 1)
	call := syncSvc.calls[0]
	assert.Equal(t, shop.Domain, call.shopDomain)
	assert.Equal(t, syncdomain.TriggerScheduled, call.trigger)
	assert.Len(t, call.variantIDs, 3)
	for _, id := range call.variantIDs {
		assert.True(t, invdomain.IsVariantGID(id))
	}
}

func TestSyncSweepSkipsInactiveShops(t *testing.T) {
	db := openTestDB(t)
	inactive := seedShopWithVariants(t, db, false, 2, 0)

	syncSvc := &syncServiceStub{}
	sched := newTestScheduler(t, db, &shopServiceStub{shops: []shopdomain.Shop{inactive}}, syncSvc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, syncSvc.calls)
}

func TestSyncSweepSkipsShopsWithoutTrackedVariants(t *testing.T) {
	db := openTestDB(t)
	shop := seedShopWithVariants(t, db, true, 0, 2)

	syncSvc := &syncServiceStub{}
	sched := newTestScheduler(t, db, &shopServiceStub{shops: []shopdomain.Shop{shop}}, syncSvc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, syncSvc.calls)
}

func TestSyncSweepChunksBatches(t *testing.T) {
	db := openTestDB(t)
	shop := seedShopWithVariants(t, db, true, 5, 0)

	syncSvc := &syncServiceStub{}
	sched := newTestScheduler(t, db, &shopServiceStub{shops: []shopdomain.Shop{shop}}, syncSvc, Config{BatchSize: 2})

	require.NoError(t, sched.RunOnce(context.Background()))

	require.Len(t, syncSvc.calls, 3)
	assert.Len(t, syncSvc.calls[0].variantIDs, 2)
	assert.Len(t, syncSvc.calls[1].variantIDs, 2)
	assert.Len(t, syncSvc.calls[2].variantIDs, 1)
}

func TestSyncSweepJoinsPerShopFailures(t *testing.T) {
	db := openTestDB(t)
	first := seedShopWithVariants(t, db, true, 1, 0)
	second := seedShopWithVariants(t, db, true, 1, 0)

	cause := errors.New("boom")
	syncSvc := &syncServiceStub{err: cause}
	sched := newTestScheduler(t, db, &shopServiceStub{shops: []shopdomain.Shop{first, second}}, syncSvc, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	// Both shops were attempted despite the first failure.
	assert.Len(t, syncSvc.calls, 2)
}

func TestRunJobTreatsDeadlineAsSoftTimeout(t *testing.T) {
	db := openTestDB(t)
	sched := newTestScheduler(t, db, &shopServiceStub{}, &syncServiceStub{}, Config{})

	err := sched.runJob(context.Background(), "sync_sweep", time.Minute, func(ctx context.Context) error {
		return context.DeadlineExceeded
	})
	assert.NoError(t, err)
}

func TestChunk(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	batches := chunk(ids, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"e"}, batches[2])

	assert.Len(t, chunk(ids, 10), 1)
	assert.Empty(t, chunk(nil, 2))
}
