// internal/domain/subscription/dto.go
package subscription

// View joins a subscription with the plan fields the dashboard renders.
type View struct {
	*Subscription
	PlanName     string `json:"plan_name"`
	PlanPrice    int64  `json:"plan_price"`
	PaymentToken string `json:"payment_token"`
	TokenSymbol  string `json:"token_symbol,omitempty"`
	Creator      string `json:"creator"`
}

// SubscriberRow is what a creator sees when listing a plan's subscribers.
type SubscriberRow struct {
	Subscriber string `json:"subscriber"`
	TokenID    int64  `json:"token_id"`
	Active     bool   `json:"active"`
	EndTime    string `json:"end_time"`
	Renewals   int    `json:"renewals"`
}
