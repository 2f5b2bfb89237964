package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	"github.com/angelmondragon/sealcard-backend/pkg/metrics"
)

type fakeReconciler struct {
	ids      []uuid.UUID
	listErr  error
	since    time.Time
	limit    int
	results  map[uuid.UUID]*ledgers.ReconcileResult
	errs     map[uuid.UUID]error
	repaired []bool
}

func (f *fakeReconciler) RecentlyTouched(_ context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	f.since = since
	f.limit = limit
	return f.ids, f.listErr
}

func (f *fakeReconciler) Reconcile(_ context.Context, id uuid.UUID, repair bool) (*ledgers.ReconcileResult, error) {
	f.repaired = append(f.repaired, repair)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if res, ok := f.results[id]; ok {
		out := *res
		out.Repaired = out.Mismatch && repair
		return &out, nil
	}
	return &ledgers.ReconcileResult{LedgerID: id}, nil
}

func newReconcileJob(t *testing.T, rec *fakeReconciler, repair bool, reg prometheus.Registerer) *ledgerReconcileJob {
	t.Helper()
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:   quietLogger(),
		Ledgers:  rec,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Lookback: 6 * time.Hour,
		Batch:    50,
		Repair:   repair,
	})
	if err != nil {
		t.Fatalf("NewLedgerReconcileJob: %v", err)
	}
	return job.(*ledgerReconcileJob)
}

func TestLedgerReconcileJobCountsMismatches(t *testing.T) {
	clean, drifted := uuid.New(), uuid.New()
	rec := &fakeReconciler{
		ids: []uuid.UUID{clean, drifted},
		results: map[uuid.UUID]*ledgers.ReconcileResult{
			drifted: {LedgerID: drifted, CachedStamps: 4, ReplayedStamps: 3, Mismatch: true},
		},
	}
	reg := prometheus.NewRegistry()
	job := newReconcileJob(t, rec, false, reg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rec.since.Equal(now.Add(-6 * time.Hour)) {
		t.Fatalf("unexpected lookback start %s", rec.since)
	}
	if rec.limit != 50 {
		t.Fatalf("expected batch limit 50, got %d", rec.limit)
	}
	for _, repair := range rec.repaired {
		if repair {
			t.Fatalf("repair should be off")
		}
	}

	expected := `
# HELP sealcard_cron_reconcile_mismatches_total Ledgers whose cached aggregate disagreed with the replayed seal log.
# TYPE sealcard_cron_reconcile_mismatches_total counter
sealcard_cron_reconcile_mismatches_total{repaired="false"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "sealcard_cron_reconcile_mismatches_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestLedgerReconcileJobRepairsWhenEnabled(t *testing.T) {
	drifted := uuid.New()
	rec := &fakeReconciler{
		ids: []uuid.UUID{drifted},
		results: map[uuid.UUID]*ledgers.ReconcileResult{
			drifted: {LedgerID: drifted, CachedRewards: 2, ReplayedRewards: 1, Mismatch: true},
		},
	}
	reg := prometheus.NewRegistry()
	job := newReconcileJob(t, rec, true, reg)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := `
# HELP sealcard_cron_reconcile_mismatches_total Ledgers whose cached aggregate disagreed with the replayed seal log.
# TYPE sealcard_cron_reconcile_mismatches_total counter
sealcard_cron_reconcile_mismatches_total{repaired="true"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "sealcard_cron_reconcile_mismatches_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestLedgerReconcileJobAggregatesErrors(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	rec := &fakeReconciler{
		ids: []uuid.UUID{a, b, c},
		errs: map[uuid.UUID]error{
			a: errors.New("replay a"),
			c: errors.New("replay c"),
		},
	}
	job := newReconcileJob(t, rec, false, nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if got := len(multierr.Errors(errors.Unwrap(err))); got != 2 {
		t.Fatalf("expected 2 combined errors, got %d (%v)", got, err)
	}
	if len(rec.repaired) != 3 {
		t.Fatalf("every ledger should be checked, got %d", len(rec.repaired))
	}
}

func TestLedgerReconcileJobListFailure(t *testing.T) {
	rec := &fakeReconciler{listErr: errors.New("db down")}
	job := newReconcileJob(t, rec, false, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}
