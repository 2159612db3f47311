// internal/domain/plan/entity.go
package plan

import (
	"time"

	"github.com/lib/pq"
)

// Plan is a creator-defined subscription offering. IDs are assigned
// sequentially starting at 1 and are never reused; plans are never deleted so
// historical subscriptions stay resolvable. Price is in base units of
// PaymentToken and Duration is the billing period in seconds.
type Plan struct {
	ID           int64          `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Description  string         `json:"description" db:"description"`
	Price        int64          `json:"price" db:"price"`
	Duration     int64          `json:"duration" db:"duration"`
	PaymentToken string         `json:"payment_token" db:"payment_token"`
	MetadataURI  string         `json:"metadata_uri,omitempty" db:"metadata_uri"`
	Tags         pq.StringArray `json:"tags,omitempty" db:"tags"`
	Creator      string         `json:"creator" db:"creator"`
	Active       bool           `json:"active" db:"active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Period returns the billing period as a time.Duration.
func (p *Plan) Period() time.Duration {
	return time.Duration(p.Duration) * time.Second
}

// Clone returns a deep copy, used by the memory store to keep transaction
// isolation.
func (p *Plan) Clone() *Plan {
	cp := *p
	if p.Tags != nil {
		cp.Tags = append(pq.StringArray(nil), p.Tags...)
	}
	return &cp
}
