package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

type retentionCall struct {
	cutoff   time.Time
	terminal int
}

type recordingRetentionRepo struct {
	calls []retentionCall
	err   error
}

func (r *recordingRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, terminal int) (int64, error) {
	r.calls = append(r.calls, retentionCall{cutoff: cutoff, terminal: terminal})
	return 7, r.err
}

type inlineTx struct{ entered int }

func (i *inlineTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	i.entered++
	return fn(nil)
}

func TestOutboxRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.FixedZone("CST", -6*3600))
	cases := []struct {
		name         string
		params       OutboxRetentionJobParams
		wantCutoff   time.Time
		wantTerminal int
	}{
		{
			name:         "defaults",
			wantCutoff:   now.UTC().Add(-defaultOutboxRetention),
			wantTerminal: defaultTerminalAttempts,
		},
		{
			name:         "configured",
			params:       OutboxRetentionJobParams{Retention: 72 * time.Hour, TerminalAttempts: 4},
			wantCutoff:   now.UTC().Add(-72 * time.Hour),
			wantTerminal: 4,
		},
		{
			name:         "negative values fall back",
			params:       OutboxRetentionJobParams{Retention: -time.Hour, TerminalAttempts: -1},
			wantCutoff:   now.UTC().Add(-defaultOutboxRetention),
			wantTerminal: defaultTerminalAttempts,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &recordingRetentionRepo{}
			tx := &inlineTx{}
			job := buildRetentionJob(t, tc.params, tx, repo)
			job.now = func() time.Time { return now }

			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tx.entered != 1 || len(repo.calls) != 1 {
				t.Fatalf("tx entered %d times, repo called %d times", tx.entered, len(repo.calls))
			}
			got := repo.calls[0]
			if !got.cutoff.Equal(tc.wantCutoff) || got.cutoff.Location() != time.UTC {
				t.Fatalf("cutoff = %s, want %s in UTC", got.cutoff, tc.wantCutoff)
			}
			if got.terminal != tc.wantTerminal {
				t.Fatalf("terminal attempts = %d, want %d", got.terminal, tc.wantTerminal)
			}
		})
	}
}

func TestOutboxRetentionWrapsRepositoryError(t *testing.T) {
	boom := errors.New("disk full")
	job := buildRetentionJob(t, OutboxRetentionJobParams{}, &inlineTx{}, &recordingRetentionRepo{err: boom})

	err := job.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestNewOutboxRetentionJobRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	for name, params := range map[string]OutboxRetentionJobParams{
		"logger": {DB: &inlineTx{}, Repository: &recordingRetentionRepo{}},
		"db":     {Logger: logg, Repository: &recordingRetentionRepo{}},
		"repo":   {Logger: logg, DB: &inlineTx{}},
	} {
		if _, err := NewOutboxRetentionJob(params); err == nil {
			t.Errorf("missing %s: expected error", name)
		}
	}
}

func buildRetentionJob(t *testing.T, params OutboxRetentionJobParams, tx txRunner, repo outboxRetentionRepo) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	params.DB = tx
	params.Repository = repo
	job, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if name := job.Name(); name != "outbox-retention" {
		t.Fatalf("job name = %q", name)
	}
	return job.(*outboxRetentionJob)
}
