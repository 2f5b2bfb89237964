package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/metrics"
)

const (
	defaultReconcileLookback = 48 * time.Hour
	defaultReconcileBatch    = 500
	maxReportedMismatches    = 20
)

type ledgerReconciler interface {
	RecentlyTouched(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
	Reconcile(ctx context.Context, ledgerID uuid.UUID, repair bool) (*ledgers.ReconcileResult, error)
}

type LedgerReconcileJobParams struct {
	Logger   *logger.Logger
	Ledgers  ledgerReconciler
	Metrics  *metrics.CronJobMetrics
	Lookback time.Duration
	Batch    int
	Repair   bool
}

// ledgerReconcileJob replays the seal log of every ledger touched within the
// lookback window and compares it with the cached stamps and rewards.
type ledgerReconcileJob struct {
	logg     *logger.Logger
	ledgers  ledgerReconciler
	metrics  *metrics.CronJobMetrics
	lookback time.Duration
	batch    int
	repair   bool
	now      func() time.Time
}

func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Ledgers == nil {
		return nil, errors.New("ledger service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ledgerReconcileJob{
		logg:     params.Logger,
		ledgers:  params.Ledgers,
		metrics:  params.Metrics,
		lookback: lookback,
		batch:    batch,
		repair:   params.Repair,
		now:      time.Now,
	}, nil
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

// Run checks every candidate even when some fail; per-ledger errors are
// combined and returned together.
func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	since := j.now().UTC().Add(-j.lookback)
	ids, err := j.ledgers.RecentlyTouched(ctx, since, j.batch)
	if err != nil {
		return fmt.Errorf("list touched ledgers: %w", err)
	}

	var (
		errs       error
		mismatched []string
		drifted    int
		repaired   int
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result, err := j.ledgers.Reconcile(ctx, id, j.repair)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ledger %s: %w", id, err))
			continue
		}
		if !result.Mismatch {
			continue
		}
		drifted++
		if result.Repaired {
			repaired++
		}
		if len(mismatched) < maxReportedMismatches {
			mismatched = append(mismatched, id.String())
		}
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"ledger_id":        id.String(),
			"cached_stamps":    result.CachedStamps,
			"replayed_stamps":  result.ReplayedStamps,
			"cached_rewards":   result.CachedRewards,
			"replayed_rewards": result.ReplayedRewards,
			"repaired":         result.Repaired,
		}), "ledger.reconcile.mismatch")
	}

	j.metrics.AddMismatches(repaired, true)
	j.metrics.AddMismatches(drifted-repaired, false)

	failures := multierr.Errors(errs)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"since":    since,
		"checked":  len(ids),
		"drifted":  drifted,
		"sample":   mismatched,
		"repaired": repaired,
		"failed":   len(failures),
	}), "ledger reconcile complete")

	if errs != nil {
		return fmt.Errorf("ledger reconcile: %d of %d ledgers failed: %w", len(failures), len(ids), errs)
	}
	return nil
}
