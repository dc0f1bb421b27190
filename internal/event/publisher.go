package event

import (
	"context"

	"github.com/umalmyha/customer-registry/internal/model"
)

// Event types emitted for every successful mutation
const (
	TypeCustomerCreated = "customer.created"
	TypeCustomerUpdated = "customer.updated"
	TypeCustomerDeleted = "customer.deleted"
)

// Envelope wraps the aggregate snapshot sent to consumers. Delivery
// is at-least-once, deduplication by envelope id is the consumer's
// responsibility
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt string          `json:"occurredAt"`
	Customer   *model.Customer `json:"customer"`
}

// Publisher is the outbound port for domain events. Publish is
// synchronous - a failed publish fails the enclosing operation even
// though storage already committed
type Publisher interface {
	Publish(ctx context.Context, eventType string, c *model.Customer) error
}
