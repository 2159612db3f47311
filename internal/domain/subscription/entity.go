// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"
)

// Subscription is a subscriber's paid claim against a plan. There is at most
// one record per (subscriber, plan) pair; a subscription is active if and only
// if it owns a live membership pass. Cancelling deactivates the record and
// burns the pass; resubscribing reuses the record slot with a fresh token ID.
type Subscription struct {
	Subscriber  string       `json:"subscriber" db:"subscriber"`
	PlanID      int64        `json:"plan_id" db:"plan_id"`
	Active      bool         `json:"active" db:"active"`
	StartTime   time.Time    `json:"start_time" db:"start_time"`
	EndTime     time.Time    `json:"end_time" db:"end_time"`
	TokenID     int64        `json:"token_id" db:"token_id"`
	Renewals    int          `json:"renewals" db:"renewals"`
	CancelledAt sql.NullTime `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the validity window has passed. An expired
// subscription is still active in the ledger sense until cancelled.
func (s *Subscription) Expired(now time.Time) bool {
	return now.After(s.EndTime)
}

// Clone returns a copy, used by the memory store for transaction isolation.
func (s *Subscription) Clone() *Subscription {
	cp := *s
	return &cp
}
