package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/stocksense/internal/config"
	"github.com/smallbiznis/stocksense/internal/observability/logger"
	"github.com/smallbiznis/stocksense/internal/observability/metrics"
	"github.com/smallbiznis/stocksense/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxBatchIDs is the Shopify nodes(ids:) batch bound.
const maxBatchIDs = 250

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Fetcher    domain.VariantFetcher
	Reconciler domain.Reconciler
	Repo       domain.Repository
}

type Service struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	fetcher    domain.VariantFetcher
	reconciler domain.Reconciler
	repo       domain.Repository
	entropy    *ulid.MonotonicEntropy
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("sync.service"),
		genID:      p.GenID,
		fetcher:    p.Fetcher,
		reconciler: p.Reconciler,
		repo:       p.Repo,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// SyncVariants validates the request, fetches the batch from Shopify and
// reconciles each node. The returned run is persisted even on failure.
func (s *Service) SyncVariants(ctx context.Context, req domain.SyncRequest) (*domain.SyncRun, error) {
	trigger := req.Trigger
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	if err := validateRequest(req); err != nil {
		metrics.Sync().IncRunError(trigger, err)
		return nil, err
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	log := logger.WithContext(ctx, s.log).With(
		zap.String("run_id", runID),
		zap.String("shop_domain", req.Shop.Domain),
		zap.String("trigger", trigger),
		zap.Int("requested", len(req.VariantIDs)),
	)

	started := time.Now().UTC()
	metrics.Sync().IncRun(trigger)

	run := &domain.SyncRun{
		ID:        s.genID.Generate(),
		ShopID:    req.Shop.ID,
		RunID:     runID,
		Trigger:   trigger,
		Requested: len(req.VariantIDs),
		StartedAt: started,
	}

	nodes, err := s.fetcher.FetchVariants(ctx, req.Shop, req.VariantIDs)
	if err != nil {
		syncErr := asSyncError(err, domain.KindFetchFailed, "fetch variants")
		s.finishRun(ctx, log, run, domain.RunStatusFailed, syncErr)
		metrics.Sync().IncRunError(trigger, syncErr)
		return run, syncErr
	}

	results := s.reconciler.Reconcile(ctx, req.Shop, nodes, domain.ReconcileOptions{
		ContinueOnError: s.cfg.SyncContinueOnError,
	})

	var firstErr error
	for _, res := range results {
		switch res.Outcome {
		case domain.ItemOutcomeReconciled:
			run.Reconciled++
		case domain.ItemOutcomeSkipped:
			run.Skipped++
		case domain.ItemOutcomeFailed:
			run.Failed++
			if firstErr == nil {
				firstErr = res.Err
			}
		}
	}
	metrics.Sync().IncItems(metrics.SyncItemOutcomeReconciled, run.Reconciled)
	metrics.Sync().IncItems(metrics.SyncItemOutcomeSkipped, run.Skipped)
	metrics.Sync().IncItems(metrics.SyncItemOutcomeFailed, run.Failed)

	status := domain.RunStatusSucceeded
	if run.Failed > 0 {
		status = domain.RunStatusFailed
		if run.Reconciled > 0 {
			status = domain.RunStatusPartial
		}
	}
	s.finishRun(ctx, log, run, status, firstErr)

	metrics.Sync().ObserveRunDuration(trigger, time.Since(started))
	if firstErr != nil {
		metrics.Sync().IncRunError(trigger, firstErr)
		return run, firstErr
	}

	log.Info("variant sync finished",
		zap.Int("reconciled", run.Reconciled),
		zap.Int("skipped", run.Skipped),
	)
	return run, nil
}

func (s *Service) finishRun(ctx context.Context, log *zap.Logger, run *domain.SyncRun, status string, cause error) {
	run.Status = status
	run.FinishedAt = time.Now().UTC()
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := s.repo.SaveRun(ctx, s.db, run); err != nil {
		// The run row is bookkeeping; a failed insert must not mask the
		// sync outcome.
		log.Warn("failed to record sync run", zap.Error(err))
	}
}

func validateRequest(req domain.SyncRequest) error {
	if req.Shop.ID == 0 || req.Shop.Domain == "" {
		return domain.InvalidInput("shop is required")
	}
	if req.Shop.AccessToken == "" {
		return domain.InvalidInput("shop has no access token")
	}
	if len(req.VariantIDs) == 0 {
		return domain.InvalidInput("variant ids are required")
	}
	if len(req.VariantIDs) > maxBatchIDs {
		return domain.InvalidInput("variant id batch exceeds 250")
	}
	for _, id := range req.VariantIDs {
		if id == "" {
			return domain.InvalidInput("variant ids must be non-empty")
		}
	}
	return nil
}

// asSyncError keeps an already classified error; anything else is wrapped
// under the given kind.
func asSyncError(err error, kind domain.ErrorKind, message string) error {
	var syncErr *domain.SyncError
	if errors.As(err, &syncErr) {
		return err
	}
	return &domain.SyncError{Kind: kind, Message: message, Err: err}
}
