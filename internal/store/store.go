// internal/store/store.go
package store

import (
	"context"

	"subpass-service/internal/domain/pass"
	"subpass-service/internal/domain/payment"
	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/subscription"
)

// Store is the combined plan/subscription/pass/balance state behind the
// ledger. Update runs fn inside one transaction: either every write in fn is
// applied or none is. View serves a consistent read snapshot; write calls on a
// view transaction fail.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close()
}

type Tx interface {
	// Plans. IDs are allocated by NextPlanID, sequential from 1, never reused.
	NextPlanID(ctx context.Context) (int64, error)
	PutPlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, id int64) (*plan.Plan, error)
	ListPlans(ctx context.Context, f plan.ListFilters) ([]*plan.Plan, error)

	// Subscriptions, keyed by (subscriber, plan).
	PutSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subscriber string, planID int64) (*subscription.Subscription, error)
	ListSubscriptionsBySubscriber(ctx context.Context, subscriber string) ([]*subscription.Subscription, error)
	ListSubscriptionsByPlan(ctx context.Context, planID int64) ([]*subscription.Subscription, error)
	CountActiveByPlan(ctx context.Context, planID int64) (int64, error)

	// Membership passes. Burning deletes the row; GetPass on a burned or
	// never-minted token returns ErrNotFound.
	NextTokenID(ctx context.Context) (int64, error)
	PutPass(ctx context.Context, p *pass.Pass) error
	GetPass(ctx context.Context, tokenID int64) (*pass.Pass, error)
	DeletePass(ctx context.Context, tokenID int64) error

	// Custodial token balances and allowances.
	Balance(ctx context.Context, token, holder string) (int64, error)
	CreditBalance(ctx context.Context, token, holder string, amount int64) error
	DebitBalance(ctx context.Context, token, holder string, amount int64) error
	Allowance(ctx context.Context, token, owner, spender string) (int64, error)
	SetAllowance(ctx context.Context, token, owner, spender string, amount int64) error

	// Payment history and dashboard aggregates.
	AddPayment(ctx context.Context, p *payment.Payment) error
	ListPaymentsByPayer(ctx context.Context, payer string, limit int) ([]*payment.Payment, error)
	RevenueByPlan(ctx context.Context, planID int64) (int64, error)
	TotalSpentBy(ctx context.Context, payer string) (int64, error)
	TotalEarnedBy(ctx context.Context, creator string) (int64, error)
	TotalFees(ctx context.Context) (int64, error)
}
