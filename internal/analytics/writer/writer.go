package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	gax "github.com/googleapis/gax-go/v2"

	"github.com/angelmondragon/sealcard-backend/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/sealcard-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

type Config struct {
	SealEventsTable string
	BatchSize       int
	RetryPolicy     RetryPolicy
}

// RetryPolicy bounds retries of transient insert failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams seal_events rows. Rows are held until BatchSize is
// reached; with the default of 1 every insert is durable before the caller
// acks the message. The event id doubles as the streaming insert id so a
// redelivered event is deduplicated by BigQuery as well.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy

	mu      sync.Mutex
	pending []types.SealEventRow
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	table := strings.TrimSpace(cfg.SealEventsTable)
	if table == "" {
		return nil, errors.New("seal events table is required")
	}

	retry := RetryPolicy{
		MaxAttempts:    positiveOr(cfg.RetryPolicy.MaxAttempts, defaultMaxAttempts),
		InitialBackoff: positiveOr(cfg.RetryPolicy.InitialBackoff, defaultInitialBackoff),
		MaximumBackoff: positiveOr(cfg.RetryPolicy.MaximumBackoff, defaultMaximumBackoff),
	}
	retry.MaximumBackoff = max(retry.MaximumBackoff, retry.InitialBackoff)

	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: positiveOr(cfg.BatchSize, defaultBatchSize),
		retry:     retry,
	}, nil
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

// InsertSealEvent queues row and writes the batch once it is full.
func (w *BigQueryWriter) InsertSealEvent(ctx context.Context, row types.SealEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush writes whatever is queued. Called on shutdown.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

// flushLocked keeps the queue intact on failure so the next flush retries it.
func (w *BigQueryWriter) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	savers := make([]any, 0, len(w.pending))
	for i := range w.pending {
		savers = append(savers, &cbigquery.StructSaver{
			Struct:   &w.pending[i],
			InsertID: w.pending[i].EventID,
		})
	}
	if err := w.insert(ctx, savers); err != nil {
		return err
	}
	w.pending = w.pending[:0]
	return nil
}

func (w *BigQueryWriter) insert(ctx context.Context, rows []any) error {
	bo := gax.Backoff{
		Initial:    w.retry.InitialBackoff,
		Max:        w.retry.MaximumBackoff,
		Multiplier: 2,
	}
	for attempt := 1; ; attempt++ {
		err := w.client.InsertRows(ctx, w.table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %d rows into %s: %w", len(rows), w.table, err)
		}
		if sleepErr := gax.Sleep(ctx, bo.Pause()); sleepErr != nil {
			return sleepErr
		}
	}
}

// EncodeJSON turns an event payload into a value for a JSON column. Empty
// input maps to NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
