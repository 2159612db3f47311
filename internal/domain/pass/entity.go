// internal/domain/pass/entity.go
package pass

import "time"

// Pass is a membership NFT: one per active subscription, owned by the
// subscriber. Token IDs are sequential and unique process-wide; a burned pass
// is removed entirely so OwnerOf fails for it afterwards.
type Pass struct {
	TokenID     int64     `json:"token_id" db:"token_id"`
	Owner       string    `json:"owner" db:"owner"`
	PlanID      int64     `json:"plan_id" db:"plan_id"`
	MetadataURI string    `json:"metadata_uri,omitempty" db:"metadata_uri"`
	MintedAt    time.Time `json:"minted_at" db:"minted_at"`
}

// Clone returns a copy, used by the memory store for transaction isolation.
func (p *Pass) Clone() *Pass {
	cp := *p
	return &cp
}
