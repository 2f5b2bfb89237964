package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sealcard-backend/internal/testdb"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
)

func TestEmitStoresEnvelopeKeyedByRowID(t *testing.T) {
	conn := testdb.Open(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewRepository(conn), nil)
	svc.now = func() time.Time { return fixed }

	ledgerID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: enums.UserRoleMerchant}
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventSealsApplied,
		AggregateType: enums.AggregateCustomerLedger,
		AggregateID:   ledgerID,
		Actor:         actor,
		Data:          map[string]int{"seals_given": 2},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)

	env, err := ParseEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, rows[0].ID.String(), env.EventID)
	require.Equal(t, currentEnvelopeVersion, env.Version)
	require.True(t, env.OccurredAt.Equal(fixed))
	require.Equal(t, actor.UserID, env.Actor.UserID)
	require.JSONEq(t, `{"seals_given":2}`, string(env.Data))
	require.Equal(t, ledgerID, rows[0].AggregateID)
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     "stamp_printed",
		AggregateType: enums.AggregateCustomerLedger,
	})
	require.ErrorContains(t, err, "invalid event type")
	require.ErrorContains(t, err, "aggregate id required")

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestParseEnvelopeRequiresData(t *testing.T) {
	raw, err := json.Marshal(PayloadEnvelope{Version: 1, EventID: uuid.NewString()})
	require.NoError(t, err)
	_, err = ParseEnvelope(raw)
	require.ErrorContains(t, err, "data missing")

	id := uuid.NewString()
	for _, data := range []string{`null`, ` null `} {
		_, err = ParseEnvelope([]byte(`{"version":1,"eventId":"` + id + `","data":` + data + `}`))
		require.ErrorContains(t, err, "data missing", data)
	}

	_, err = ParseEnvelope([]byte(`{"version":1,"eventId":"` + id + `","data":{}}`))
	require.NoError(t, err)

	_, err = ParseEnvelope([]byte(`{`))
	require.Error(t, err)
}
