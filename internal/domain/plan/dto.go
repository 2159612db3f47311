// internal/domain/plan/dto.go
package plan

type CreatePlanRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Price        int64    `json:"price" binding:"required"`
	Duration     int64    `json:"duration" binding:"required"`
	PaymentToken string   `json:"payment_token" binding:"required"`
	MetadataURI  string   `json:"metadata_uri"`
	Tags         []string `json:"tags"`
}

// UpdatePlanRequest updates mutable plan fields. Price changes affect future
// charges only; running subscriptions keep their validity window.
type UpdatePlanRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *int64   `json:"price"`
	MetadataURI *string  `json:"metadata_uri"`
	Tags        []string `json:"tags"`
}

type ListFilters struct {
	Creator    string `form:"creator"`
	Tag        string `form:"tag"`
	ActiveOnly bool   `form:"active_only"`
}

// PlanWithStats is the creator-dashboard projection of a plan.
type PlanWithStats struct {
	*Plan
	Subscribers int64 `json:"subscribers"`
	Revenue     int64 `json:"revenue"`
}
