package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SealEventRow mirrors the seal_events BigQuery schema. One row per loyalty
// event; columns an event does not carry stay NULL.
type SealEventRow struct {
	EventID            string             `bigquery:"event_id"`
	EventType          string             `bigquery:"event_type"`
	OccurredAt         time.Time          `bigquery:"occurred_at"`
	ProgramID          string             `bigquery:"program_id"`
	LedgerID           *string            `bigquery:"ledger_id"`
	CustomerID         *string            `bigquery:"customer_id"`
	ActorID            *string            `bigquery:"actor_id"`
	ActorRole          *string            `bigquery:"actor_role"`
	TransactionID      *string            `bigquery:"transaction_id"`
	Delta              *int64             `bigquery:"delta"`
	StampsAfter        *int64             `bigquery:"stamps_after"`
	RewardsEarned      *int64             `bigquery:"rewards_earned"`
	TotalRewardsEarned *int64             `bigquery:"total_rewards_earned"`
	BusinessCategory   *string            `bigquery:"business_category"`
	Payload            cbigquery.NullJSON `bigquery:"payload"`
}
