// internal/domain/event/entity.go
package event

import "time"

type Type string

const (
	TypePlanCreated          Type = "plan.created"
	TypePlanUpdated          Type = "plan.updated"
	TypeSubscriptionCreated  Type = "subscription.created"
	TypeSubscriptionRenewed  Type = "subscription.renewed"
	TypeSubscriptionCanceled Type = "subscription.cancelled"
	TypePaymentSettled       Type = "payment.settled"
)

// Event is the envelope pushed to websocket clients and, when a broker is
// configured, published to Kafka. Addressed delivery: every address in
// Audience receives it over the hub.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	Audience   []string               `json:"-"`
	PlanID     int64                  `json:"plan_id,omitempty"`
	Subscriber string                 `json:"subscriber,omitempty"`
	TokenID    int64                  `json:"token_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	At         time.Time              `json:"at"`
}
