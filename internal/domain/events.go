package domain

import "time"

// Event types
const (
	EventTypeGroupCreated     = "group.created"
	EventTypeGroupUpdated     = "group.updated"
	EventTypeGroupConfirmed   = "group.confirmed"
	EventTypeGroupCancelled   = "group.cancelled"
	EventTypeGroupDeleted     = "group.deleted"
	EventTypeFundingAllocated = "funding.allocated"
	EventTypePaymentCreated   = "payment.created"
	EventTypeAccountCreated   = "account.created"
)

// Aggregate types
const (
	AggregateTypeGroup   = "transaction_group"
	AggregateTypeAccount = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
