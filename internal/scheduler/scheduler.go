// Package scheduler drives the periodic reconciliation sweep: every
// RunInterval it walks the installed shops and syncs their tracked
// variants against Shopify.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/stocksense/internal/clock"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/internal/observability/metrics"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler missing required dependency")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	ShopSvc shopdomain.Service
	SyncSvc syncdomain.Service
	InvRepo invdomain.Repository
	Locker  *Locker `optional:"true"`
	Config  Config  `optional:"true"`
}

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	shopSvc shopdomain.Service
	syncSvc syncdomain.Service
	invRepo invdomain.Repository
	locker  *Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.ShopSvc == nil || p.SyncSvc == nil || p.InvRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		shopSvc: p.ShopSvc,
		syncSvc: p.SyncSvc,
		invRepo: p.InvRepo,
		locker:  p.Locker,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "sync_sweep", s.cfg.JobTimeout, s.SyncSweepJob)
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	syncMetrics := metrics.Sync()

	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	if err == nil {
		log.Debug("job finished", zap.Duration("duration", duration))
		return nil
	}

	// A deadline is a soft timeout: partial progress is kept and the next
	// tick picks up the rest.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		syncMetrics.IncRunTimeout(syncdomain.TriggerScheduled)
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// SyncSweepJob reconciles every active shop. Per-shop failures are joined
// and reported together so one broken shop never starves the rest.
func (s *Scheduler) SyncSweepJob(ctx context.Context) error {
	shops, err := s.shopSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("list shops: %w", err)
	}

	var errs error
	for _, shop := range shops {
		if ctx.Err() != nil {
			return errors.Join(errs, ctx.Err())
		}
		if !shop.Active {
			continue
		}
		if err := s.syncShop(ctx, shop); err != nil {
			errs = errors.Join(errs, fmt.Errorf("shop %s: %w", shop.Domain, err))
		}
	}
	return errs
}

func (s *Scheduler) syncShop(ctx context.Context, shop shopdomain.Shop) error {
	log := s.log.With(zap.String("shop_domain", shop.Domain))

	if s.locker != nil {
		key := "stocksense:sync:lock:" + shop.ID.String()
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire shop lock: %w", err)
		}
		if !ok {
			metrics.Sync().IncLockSkipped(syncdomain.TriggerScheduled)
			log.Debug("shop locked by another run, skipping")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("failed to release shop lock", zap.Error(err))
			}
		}()
	}

	variantIDs, err := s.invRepo.ListTrackedVariantIDs(ctx, s.db, shop.ID)
	if err != nil {
		return fmt.Errorf("list tracked variants: %w", err)
	}
	if len(variantIDs) == 0 {
		return nil
	}

	var errs error
	for _, batch := range chunk(variantIDs, s.cfg.BatchSize) {
		_, err := s.syncSvc.SyncVariants(ctx, syncdomain.SyncRequest{
			Shop:       shop,
			VariantIDs: batch,
			Trigger:    syncdomain.TriggerScheduled,
		})
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		return [][]string{ids}
	}
	var batches [][]string
	for len(ids) > size {
		batches = append(batches, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		batches = append(batches, ids)
	}
	return batches
}
