package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/stocksense/internal/config"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	"github.com/smallbiznis/stocksense/internal/sync/domain"
	syncrepo "github.com/smallbiznis/stocksense/internal/sync/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fetcherMock struct {
	mock.Mock
}

func (m *fetcherMock) FetchVariants(ctx context.Context, shop shopdomain.Shop, variantIDs []string) ([]domain.VariantNode, error) {
	args := m.Called(ctx, shop, variantIDs)
	nodes, _ := args.Get(0).([]domain.VariantNode)
	return nodes, args.Error(1)
}

func newTestService(db *gorm.DB, fetcher domain.VariantFetcher, cfg config.Config) *Service {
	return &Service{
		cfg:        cfg,
		db:         db,
		log:        zap.NewNop(),
		genID:      testNode,
		fetcher:    fetcher,
		reconciler: newTestReconciler(db),
		repo:       syncrepo.Provide(),
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(1)), 0),
	}
}

func TestSyncVariantsRejectsEmptyInput(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)
	fetcher := &fetcherMock{}
	svc := newTestService(db, fetcher, config.Config{})

	_, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop: shop,
	})

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.KindInvalidInput, syncErr.Kind)
	fetcher.AssertNotCalled(t, "FetchVariants", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncVariantsRejectsMissingToken(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)
	shop.AccessToken = ""
	fetcher := &fetcherMock{}
	svc := newTestService(db, fetcher, config.Config{})

	_, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop:       shop,
		VariantIDs: []string{"gid://shopify/ProductVariant/1"},
	})

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.KindInvalidInput, syncErr.Kind)
	fetcher.AssertNotCalled(t, "FetchVariants", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncVariantsRejectsOversizedBatch(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)
	fetcher := &fetcherMock{}
	svc := newTestService(db, fetcher, config.Config{})

	ids := make([]string, 251)
	for i := range ids {
		ids[i] = "gid://shopify/ProductVariant/1"
	}
	_, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop:       shop,
		VariantIDs: ids,
	})

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.KindInvalidInput, syncErr.Kind)
}

func TestSyncVariantsWrapsFetchFailure(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)
	cause := errors.New("connection reset")
	fetcher := &fetcherMock{}
	fetcher.On("FetchVariants", mock.Anything, shop, []string{"gid://shopify/ProductVariant/1"}).
		Return(nil, cause)
	svc := newTestService(db, fetcher, config.Config{})

	run, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop:       shop,
		VariantIDs: []string{"gid://shopify/ProductVariant/1"},
	})

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.KindFetchFailed, syncErr.Kind)
	assert.True(t, errors.Is(err, cause))

	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	var stored domain.SyncRun
	require.NoError(t, db.Take(&stored, "run_id = ?", run.RunID).Error)
	assert.Equal(t, domain.RunStatusFailed, stored.Status)
	fetcher.AssertExpectations(t)
}

func TestSyncVariantsRecordsRun(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)

	nodes := []domain.VariantNode{
		variantNode(2001, 15),
		{ID: "gid://shopify/Order/2"},
	}
	ids := []string{nodes[0].ID, "gid://shopify/ProductVariant/9999"}
	fetcher := &fetcherMock{}
	fetcher.On("FetchVariants", mock.Anything, shop, ids).Return(nodes, nil)
	svc := newTestService(db, fetcher, config.Config{})

	run, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop:       shop,
		VariantIDs: ids,
		Trigger:    domain.TriggerScheduled,
	})
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, 2, run.Requested)
	assert.Equal(t, 1, run.Reconciled)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, domain.TriggerScheduled, run.Trigger)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	var stored domain.SyncRun
	require.NoError(t, db.Take(&stored, "run_id = ?", run.RunID).Error)
	assert.Equal(t, 1, stored.Reconciled)
	fetcher.AssertExpectations(t)
}

func TestSyncVariantsReturnsFirstReconcileFailure(t *testing.T) {
	db := openTestDB(t)
	shop := seedShop(t, db)

	good := variantNode(2002, 5)
	conflicting := variantNode(2003, 5)
	conflicting.InventoryItem.ID = good.InventoryItem.ID
	nodes := []domain.VariantNode{good, conflicting}
	ids := []string{good.ID, conflicting.ID}

	fetcher := &fetcherMock{}
	fetcher.On("FetchVariants", mock.Anything, shop, ids).Return(nodes, nil)
	svc := newTestService(db, fetcher, config.Config{})

	run, err := svc.SyncVariants(context.Background(), domain.SyncRequest{
		Shop:       shop,
		VariantIDs: ids,
	})

	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, domain.KindReconcileFailed, syncErr.Kind)

	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusPartial, run.Status)
	assert.Equal(t, 1, run.Reconciled)
	assert.Equal(t, 1, run.Failed)
	assert.NotEmpty(t, run.Error)
}

// ulid run ids from one service instance never collide even in a tight
// loop.
func TestRunIDsAreUnique(t *testing.T) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(1)), 0)
	seen := make(map[string]struct{})
	now := ulid.Timestamp(time.Now())
	for i := 0; i < 100; i++ {
		id := ulid.MustNew(now, entropy).String()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
