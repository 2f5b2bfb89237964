package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum.
type OutboxAggregateType string

const (
	AggregateLoyaltyProgram OutboxAggregateType = "loyalty_program"
	AggregateCustomerLedger OutboxAggregateType = "customer_ledger"
)

var aggregateTypes = []OutboxAggregateType{AggregateLoyaltyProgram, AggregateCustomerLedger}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type", exact)
}

// OutboxEventType maps to the event_type enum. Each value is also the Pub/Sub
// event_type attribute.
type OutboxEventType string

const (
	EventProgramPublished   OutboxEventType = "program_published"
	EventProgramDeactivated OutboxEventType = "program_deactivated"
	EventCustomerJoined     OutboxEventType = "customer_joined"
	EventSealsApplied       OutboxEventType = "seals_applied"
	EventRewardEarned       OutboxEventType = "reward_earned"
	EventRewardRedeemed     OutboxEventType = "reward_redeemed"
	EventLedgerDeactivated  OutboxEventType = "ledger_deactivated"
)

var eventTypes = []OutboxEventType{
	EventProgramPublished,
	EventProgramDeactivated,
	EventCustomerJoined,
	EventSealsApplied,
	EventRewardEarned,
	EventRewardRedeemed,
	EventLedgerDeactivated,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(eventTypes, value, "event type", exact)
}

// OutboxDLQErrorReason records why a row was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnknownEvent:
		return true
	}
	return false
}
