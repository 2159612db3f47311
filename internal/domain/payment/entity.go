// internal/domain/payment/entity.go
package payment

import "time"

type Kind string

const (
	KindSubscribe Kind = "subscribe"
	KindRenew     Kind = "renew"
)

// Payment records one successful charge. Amount is the gross price pulled from
// the payer; FeeAmount goes to the platform fee recipient and CreatorAmount to
// the plan creator. Amount == FeeAmount + CreatorAmount always holds.
type Payment struct {
	Reference     string    `json:"reference" db:"reference"`
	PlanID        int64     `json:"plan_id" db:"plan_id"`
	Payer         string    `json:"payer" db:"payer"`
	Creator       string    `json:"creator" db:"creator"`
	Token         string    `json:"token" db:"token"`
	Amount        int64     `json:"amount" db:"amount"`
	FeeAmount     int64     `json:"fee_amount" db:"fee_amount"`
	CreatorAmount int64     `json:"creator_amount" db:"creator_amount"`
	Kind          Kind      `json:"kind" db:"kind"`
	PaidAt        time.Time `json:"paid_at" db:"paid_at"`
}

// Clone returns a copy, used by the memory store for transaction isolation.
func (p *Payment) Clone() *Payment {
	cp := *p
	return &cp
}
