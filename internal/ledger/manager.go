// internal/ledger/manager.go
package ledger

import (
	"context"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"subpass-service/internal/domain/pass"
	"subpass-service/internal/domain/payment"
	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/subscription"
	"subpass-service/internal/domain/wallet"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// FeeRateBps is the platform cut on every charge, fixed at 2.5%.
const (
	FeeRateBps     = 250
	bpsDenominator = 10000

	// MaxPrice keeps the basis-point multiplication inside int64.
	MaxPrice = math.MaxInt64 / bpsDenominator
)

// RenewalPolicy decides what happens when a subscription is renewed after its
// end time has already passed. Extend always adds one period to the previous
// end time; Rebase restarts the window at the renewal time instead of
// crediting the lapsed gap.
type RenewalPolicy string

const (
	RenewalExtend RenewalPolicy = "extend"
	RenewalRebase RenewalPolicy = "rebase"
)

// Config fixes the deployment-time parameters of the ledger. FeeRecipient and
// the fee rate are immutable after construction.
type Config struct {
	FeeRecipient   string
	ManagerAddress string
	Policy         RenewalPolicy
	Tokens         []wallet.TokenInfo
}

// Charge is the result of a successful subscribe or renew.
type Charge struct {
	Plan         *plan.Plan
	Subscription *subscription.Subscription
	Payment      *payment.Payment
}

// Cancellation is the result of a successful cancel.
type Cancellation struct {
	Plan         *plan.Plan
	Subscription *subscription.Subscription
	BurnedToken  int64
}

// Manager is the subscription ledger: plan registry, subscription records,
// membership passes and the payment split, all mutated atomically against one
// store. A single mutex serializes every mutating operation; reads go through
// the store's snapshot view.
type Manager struct {
	mu     sync.Mutex
	store  store.Store
	logger *zap.Logger

	tokens       map[string]wallet.TokenInfo
	feeRecipient string
	spender      string
	policy       RenewalPolicy

	now func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, cfg Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	feeRecipient, err := wallet.NormalizeAddress(cfg.FeeRecipient)
	if err != nil {
		return nil, xerrors.Wrap(err, "fee recipient")
	}
	spender, err := wallet.NormalizeAddress(cfg.ManagerAddress)
	if err != nil {
		return nil, xerrors.Wrap(err, "manager address")
	}

	policy := cfg.Policy
	if policy == "" {
		policy = RenewalExtend
	}
	if policy != RenewalExtend && policy != RenewalRebase {
		return nil, xerrors.Wrapf(xerrors.ErrValidation, "unknown renewal policy %q", policy)
	}

	tokens := make(map[string]wallet.TokenInfo, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		addr, err := wallet.NormalizeAddress(t.Address)
		if err != nil {
			return nil, xerrors.Wrapf(err, "token %s", t.Symbol)
		}
		t.Address = addr
		tokens[addr] = t
	}
	if len(tokens) == 0 {
		return nil, xerrors.Wrap(xerrors.ErrValidation, "no payment tokens registered")
	}

	m := &Manager{
		store:        st,
		logger:       logger,
		tokens:       tokens,
		feeRecipient: feeRecipient,
		spender:      spender,
		policy:       policy,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) FeeRecipient() string { return m.feeRecipient }

// SpenderAddress is the identity the ledger pulls approved funds as.
func (m *Manager) SpenderAddress() string { return m.spender }

// Token looks up a registered payment token by (normalized) address.
func (m *Manager) Token(addr string) (wallet.TokenInfo, bool) {
	t, ok := m.tokens[strings.ToLower(addr)]
	return t, ok
}

// Tokens lists the registered payment tokens.
func (m *Manager) Tokens() []wallet.TokenInfo {
	out := make([]wallet.TokenInfo, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// SplitFee splits a gross price into the creator's share and the platform fee.
// The fee rounds down; the remainder stays with the creator, so the two parts
// always sum to the price exactly.
func SplitFee(price int64) (creatorAmount, feeAmount int64) {
	feeAmount = price * FeeRateBps / bpsDenominator
	return price - feeAmount, feeAmount
}

// ---------- Plan registry ----------

func (m *Manager) CreatePlan(ctx context.Context, creator string, req *plan.CreatePlanRequest) (*plan.Plan, error) {
	creator, err := wallet.NormalizeAddress(creator)
	if err != nil {
		return nil, err
	}
	token, err := m.validateTerms(req.Name, req.Description, req.Price, req.Duration, req.PaymentToken, req.MetadataURI)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var created *plan.Plan
	err = m.store.Update(ctx, func(tx store.Tx) error {
		id, err := tx.NextPlanID(ctx)
		if err != nil {
			return err
		}
		now := m.now()
		created = &plan.Plan{
			ID:           id,
			Name:         strings.TrimSpace(req.Name),
			Description:  strings.TrimSpace(req.Description),
			Price:        req.Price,
			Duration:     req.Duration,
			PaymentToken: token,
			MetadataURI:  req.MetadataURI,
			Tags:         req.Tags,
			Creator:      creator,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.PutPlan(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("plan created",
		zap.Int64("plan_id", created.ID),
		zap.String("creator", created.Creator),
		zap.Int64("price", created.Price),
	)
	return created, nil
}

func (m *Manager) validateTerms(name, description string, price, duration int64, tokenAddr, metadataURI string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", xerrors.Wrap(xerrors.ErrValidation, "name is required")
	}
	if strings.TrimSpace(description) == "" {
		return "", xerrors.Wrap(xerrors.ErrValidation, "description is required")
	}
	if price <= 0 {
		return "", xerrors.Wrap(xerrors.ErrValidation, "price must be positive")
	}
	if price > MaxPrice {
		return "", xerrors.Wrapf(xerrors.ErrValidation, "price above maximum %d", int64(MaxPrice))
	}
	if duration <= 0 {
		return "", xerrors.Wrap(xerrors.ErrValidation, "duration must be positive")
	}
	token, err := wallet.NormalizeAddress(tokenAddr)
	if err != nil {
		return "", err
	}
	if _, ok := m.tokens[token]; !ok {
		return "", xerrors.Wrapf(xerrors.ErrValidation, "payment token %s is not registered", token)
	}
	if metadataURI != "" {
		if _, err := url.ParseRequestURI(metadataURI); err != nil {
			return "", xerrors.Wrap(xerrors.ErrValidation, "malformed metadata URI")
		}
	}
	return token, nil
}

func (m *Manager) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	var p *plan.Plan
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetPlan(ctx, id)
		return err
	})
	return p, err
}

func (m *Manager) ListPlans(ctx context.Context, f plan.ListFilters) ([]*plan.Plan, error) {
	if f.Creator != "" {
		creator, err := wallet.NormalizeAddress(f.Creator)
		if err != nil {
			return nil, err
		}
		f.Creator = creator
	}
	var out []*plan.Plan
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPlans(ctx, f)
		return err
	})
	return out, err
}

func (m *Manager) UpdatePlan(ctx context.Context, caller string, planID int64, req *plan.UpdatePlanRequest) (*plan.Plan, error) {
	caller, err := wallet.NormalizeAddress(caller)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var updated *plan.Plan
	err = m.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if p.Creator != caller {
			return xerrors.Wrap(xerrors.ErrForbidden, "only the plan creator may update it")
		}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return xerrors.Wrap(xerrors.ErrValidation, "name is required")
			}
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" {
				return xerrors.Wrap(xerrors.ErrValidation, "description is required")
			}
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			if *req.Price <= 0 || *req.Price > MaxPrice {
				return xerrors.Wrap(xerrors.ErrValidation, "price out of range")
			}
			p.Price = *req.Price
		}
		if req.MetadataURI != nil {
			if *req.MetadataURI != "" {
				if _, err := url.ParseRequestURI(*req.MetadataURI); err != nil {
					return xerrors.Wrap(xerrors.ErrValidation, "malformed metadata URI")
				}
			}
			p.MetadataURI = *req.MetadataURI
		}
		if req.Tags != nil {
			p.Tags = req.Tags
		}
		p.UpdatedAt = m.now()
		updated = p
		return tx.PutPlan(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("plan updated", zap.Int64("plan_id", planID))
	return updated, nil
}

// SetPlanActive pauses or reactivates a plan. Existing subscriptions are
// untouched; an inactive plan only stops new subscribes (renewals keep
// working, matching the "does not affect existing subscribers" contract).
func (m *Manager) SetPlanActive(ctx context.Context, caller string, planID int64, active, asAdmin bool) (*plan.Plan, error) {
	caller, err := wallet.NormalizeAddress(caller)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var updated *plan.Plan
	err = m.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if p.Creator != caller && !asAdmin {
			return xerrors.Wrap(xerrors.ErrForbidden, "only the plan creator may change its status")
		}
		if p.Active == active {
			return xerrors.Wrapf(xerrors.ErrInvalidState, "plan %d already has active=%t", planID, active)
		}
		p.Active = active
		p.UpdatedAt = m.now()
		updated = p
		return tx.PutPlan(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("plan status changed", zap.Int64("plan_id", planID), zap.Bool("active", active))
	return updated, nil
}

// ---------- Subscription ledger + payment split ----------

func (m *Manager) Subscribe(ctx context.Context, subscriber string, planID int64) (*Charge, error) {
	subscriber, err := wallet.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var charge *Charge
	err = m.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if !p.Active {
			return xerrors.Wrapf(xerrors.ErrInvalidState, "plan %d is not active", planID)
		}

		existing, err := tx.GetSubscription(ctx, subscriber, planID)
		if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
			return err
		}
		if existing != nil && existing.Active {
			return xerrors.Wrapf(xerrors.ErrInvalidState, "already subscribed to plan %d", planID)
		}

		pay, err := m.pull(ctx, tx, p, subscriber, payment.KindSubscribe)
		if err != nil {
			return err
		}

		tokenID, err := tx.NextTokenID(ctx)
		if err != nil {
			return err
		}
		now := m.now()
		if err := tx.PutPass(ctx, &pass.Pass{
			TokenID:     tokenID,
			Owner:       subscriber,
			PlanID:      planID,
			MetadataURI: p.MetadataURI,
			MintedAt:    now,
		}); err != nil {
			return err
		}

		sub := &subscription.Subscription{
			Subscriber: subscriber,
			PlanID:     planID,
			Active:     true,
			StartTime:  now,
			EndTime:    now.Add(p.Period()),
			TokenID:    tokenID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if existing != nil {
			sub.CreatedAt = existing.CreatedAt
		}
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return err
		}

		charge = &Charge{Plan: p, Subscription: sub, Payment: pay}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("subscribed",
		zap.String("subscriber", subscriber),
		zap.Int64("plan_id", planID),
		zap.Int64("token_id", charge.Subscription.TokenID),
		zap.Int64("amount", charge.Payment.Amount),
	)
	return charge, nil
}

func (m *Manager) Renew(ctx context.Context, subscriber string, planID int64) (*Charge, error) {
	subscriber, err := wallet.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var charge *Charge
	err = m.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		sub, err := tx.GetSubscription(ctx, subscriber, planID)
		if err != nil {
			return err
		}
		if !sub.Active {
			return xerrors.Wrapf(xerrors.ErrInvalidState, "subscription to plan %d is cancelled", planID)
		}

		pay, err := m.pull(ctx, tx, p, subscriber, payment.KindRenew)
		if err != nil {
			return err
		}

		now := m.now()
		if m.policy == RenewalRebase && sub.Expired(now) {
			sub.EndTime = now.Add(p.Period())
		} else {
			sub.EndTime = sub.EndTime.Add(p.Period())
		}
		sub.Renewals++
		sub.UpdatedAt = now
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return err
		}

		charge = &Charge{Plan: p, Subscription: sub, Payment: pay}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("subscription renewed",
		zap.String("subscriber", subscriber),
		zap.Int64("plan_id", planID),
		zap.Time("end_time", charge.Subscription.EndTime),
	)
	return charge, nil
}

func (m *Manager) Cancel(ctx context.Context, subscriber string, planID int64) (*Cancellation, error) {
	subscriber, err := wallet.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out *Cancellation
	err = m.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		sub, err := tx.GetSubscription(ctx, subscriber, planID)
		if err != nil {
			return err
		}
		if !sub.Active {
			return xerrors.Wrapf(xerrors.ErrInvalidState, "subscription to plan %d is already cancelled", planID)
		}

		if err := tx.DeletePass(ctx, sub.TokenID); err != nil {
			return err
		}

		now := m.now()
		burned := sub.TokenID
		sub.Active = false
		sub.CancelledAt.Time = now
		sub.CancelledAt.Valid = true
		sub.UpdatedAt = now
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return err
		}

		out = &Cancellation{Plan: p, Subscription: sub, BurnedToken: burned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("subscription cancelled",
		zap.String("subscriber", subscriber),
		zap.Int64("plan_id", planID),
		zap.Int64("burned_token", out.BurnedToken),
	)
	return out, nil
}

func (m *Manager) GetSubscription(ctx context.Context, subscriber string, planID int64) (*subscription.Subscription, error) {
	subscriber, err := wallet.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}
	var sub *subscription.Subscription
	err = m.store.View(ctx, func(tx store.Tx) error {
		var err error
		sub, err = tx.GetSubscription(ctx, subscriber, planID)
		return err
	})
	return sub, err
}

// OwnerOf resolves a membership pass to its owner; burned and never-minted
// tokens fail with NotFound.
func (m *Manager) OwnerOf(ctx context.Context, tokenID int64) (string, error) {
	var owner string
	err := m.store.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetPass(ctx, tokenID)
		if err != nil {
			return err
		}
		owner = p.Owner
		return nil
	})
	return owner, err
}

// pull moves the plan price from the payer: the fee share to the fee
// recipient, the rest to the creator. Requires a prior allowance to the
// manager covering the price. Runs entirely inside the caller's transaction.
func (m *Manager) pull(ctx context.Context, tx store.Tx, p *plan.Plan, payer string, kind payment.Kind) (*payment.Payment, error) {
	creatorAmount, feeAmount := SplitFee(p.Price)

	allowance, err := tx.Allowance(ctx, p.PaymentToken, payer, m.spender)
	if err != nil {
		return nil, err
	}
	if allowance < p.Price {
		return nil, xerrors.Wrapf(xerrors.ErrInsufficientFunds, "allowance %d below price %d", allowance, p.Price)
	}
	if err := tx.DebitBalance(ctx, p.PaymentToken, payer, p.Price); err != nil {
		return nil, err
	}
	if err := tx.SetAllowance(ctx, p.PaymentToken, payer, m.spender, allowance-p.Price); err != nil {
		return nil, err
	}
	if err := tx.CreditBalance(ctx, p.PaymentToken, p.Creator, creatorAmount); err != nil {
		return nil, err
	}
	if err := tx.CreditBalance(ctx, p.PaymentToken, m.feeRecipient, feeAmount); err != nil {
		return nil, err
	}

	pay := &payment.Payment{
		Reference:     ulid.Make().String(),
		PlanID:        p.ID,
		Payer:         payer,
		Creator:       p.Creator,
		Token:         p.PaymentToken,
		Amount:        p.Price,
		FeeAmount:     feeAmount,
		CreatorAmount: creatorAmount,
		Kind:          kind,
		PaidAt:        m.now(),
	}
	if err := tx.AddPayment(ctx, pay); err != nil {
		return nil, err
	}
	return pay, nil
}
