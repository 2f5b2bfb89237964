package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/internal/testdb"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

func dlqEntry(eventID uuid.UUID, msg string) models.OutboxDLQ {
	return models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventSealsApplied,
		AggregateType: enums.AggregateCustomerLedger,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}
}

func TestDLQInsertIsIdempotentPerEvent(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()

	if err := repo.InsertTx(conn, dlqEntry(eventID, "first")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := repo.InsertTx(conn, dlqEntry(eventID, "second")); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	var count int64
	if err := conn.Model(&models.OutboxDLQ{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one dlq row, got %d", count)
	}

	row, err := repo.FindByEventID(context.Background(), eventID)
	if err != nil || row == nil {
		t.Fatalf("find: %v %v", row, err)
	}
	if row.ErrorMessage == nil || *row.ErrorMessage != "first" {
		t.Fatalf("expected first message to win, got %v", row.ErrorMessage)
	}
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()

	if err := repo.InsertTx(conn, dlqEntry(eventID, strings.Repeat("é", maxErrorLen))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	row, err := repo.FindByEventID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := len(*row.ErrorMessage); got > maxErrorLen {
		t.Fatalf("message not truncated: %d bytes", got)
	}
	if !strings.HasPrefix(strings.Repeat("é", maxErrorLen), *row.ErrorMessage) {
		t.Fatal("truncation split a rune")
	}
}

func TestDLQFindMissing(t *testing.T) {
	repo := NewDLQRepository(testdb.Open(t))
	row, err := repo.FindByEventID(context.Background(), uuid.New())
	if err != nil || row != nil {
		t.Fatalf("expected nil, nil; got %v, %v", row, err)
	}
}

func TestDLQInsertRequiresTx(t *testing.T) {
	repo := NewDLQRepository(nil)
	if err := repo.InsertTx(nil, models.OutboxDLQ{}); !errors.Is(err, errTxRequired) {
		t.Fatalf("expected transaction error, got %v", err)
	}
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	conn := testdb.Open(t)
	entry := dlqEntry(uuid.New(), "bad")
	entry.ErrorReason = "gave_up"

	if err := NewDLQRepository(conn).InsertTx(conn, entry); err == nil {
		t.Fatal("expected unknown reason to be rejected")
	}
}
