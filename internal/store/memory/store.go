// internal/store/memory/store.go
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"subpass-service/internal/domain/pass"
	"subpass-service/internal/domain/payment"
	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/subscription"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"
)

var errReadOnly = errors.New("memory store: write inside a read-only transaction")

type subKey struct {
	subscriber string
	planID     int64
}

type acctKey struct {
	token  string
	holder string
}

type allowKey struct {
	token   string
	owner   string
	spender string
}

// Store is the in-memory driver. A single RWMutex guards the whole state:
// Update holds the write lock for the full transaction closure, View the read
// lock, which gives the serialized one-writer model the ledger requires.
type Store struct {
	mu sync.RWMutex

	plans      map[int64]*plan.Plan
	subs       map[subKey]*subscription.Subscription
	passes     map[int64]*pass.Pass
	balances   map[acctKey]int64
	allowances map[allowKey]int64
	payments   []*payment.Payment

	nextPlanID  int64
	nextTokenID int64
}

func New() *Store {
	return &Store{
		plans:       make(map[int64]*plan.Plan),
		subs:        make(map[subKey]*subscription.Subscription),
		passes:      make(map[int64]*pass.Pass),
		balances:    make(map[acctKey]int64),
		allowances:  make(map[allowKey]int64),
		nextPlanID:  1,
		nextTokenID: 1,
	}
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{s: s})
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:           s,
		writable:    true,
		plans:       make(map[int64]*plan.Plan),
		subs:        make(map[subKey]*subscription.Subscription),
		passes:      make(map[int64]*pass.Pass),
		passDeleted: make(map[int64]bool),
		balances:    make(map[acctKey]int64),
		allowances:  make(map[allowKey]int64),
		nextPlanID:  s.nextPlanID,
		nextTokenID: s.nextTokenID,
	}

	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (s *Store) Close() {}

// memTx stages writes on the side and applies them on commit, so a failed
// Update leaves the store untouched.
type memTx struct {
	s        *Store
	writable bool

	plans       map[int64]*plan.Plan
	subs        map[subKey]*subscription.Subscription
	passes      map[int64]*pass.Pass
	passDeleted map[int64]bool
	balances    map[acctKey]int64
	allowances  map[allowKey]int64
	payments    []*payment.Payment

	nextPlanID  int64
	nextTokenID int64
}

func (tx *memTx) commit() {
	for id, p := range tx.plans {
		tx.s.plans[id] = p
	}
	for k, sub := range tx.subs {
		tx.s.subs[k] = sub
	}
	for id, p := range tx.passes {
		tx.s.passes[id] = p
	}
	for id := range tx.passDeleted {
		delete(tx.s.passes, id)
	}
	for k, v := range tx.balances {
		tx.s.balances[k] = v
	}
	for k, v := range tx.allowances {
		tx.s.allowances[k] = v
	}
	tx.s.payments = append(tx.s.payments, tx.payments...)
	tx.s.nextPlanID = tx.nextPlanID
	tx.s.nextTokenID = tx.nextTokenID
}

// ---------- Plans ----------

func (tx *memTx) NextPlanID(ctx context.Context) (int64, error) {
	if !tx.writable {
		return 0, errReadOnly
	}
	id := tx.nextPlanID
	tx.nextPlanID++
	return id, nil
}

func (tx *memTx) PutPlan(ctx context.Context, p *plan.Plan) error {
	if !tx.writable {
		return errReadOnly
	}
	tx.plans[p.ID] = p.Clone()
	return nil
}

func (tx *memTx) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	if tx.writable {
		if p, ok := tx.plans[id]; ok {
			return p.Clone(), nil
		}
	}
	if p, ok := tx.s.plans[id]; ok {
		return p.Clone(), nil
	}
	return nil, xerrors.Wrapf(xerrors.ErrNotFound, "plan %d", id)
}

func (tx *memTx) ListPlans(ctx context.Context, f plan.ListFilters) ([]*plan.Plan, error) {
	var out []*plan.Plan
	seen := make(map[int64]bool)
	appendMatch := func(p *plan.Plan) {
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		if f.ActiveOnly && !p.Active {
			return
		}
		if f.Creator != "" && p.Creator != f.Creator {
			return
		}
		if f.Tag != "" && !hasTag(p, f.Tag) {
			return
		}
		out = append(out, p.Clone())
	}
	if tx.writable {
		for _, p := range tx.plans {
			appendMatch(p)
		}
	}
	for _, p := range tx.s.plans {
		appendMatch(p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasTag(p *plan.Plan, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ---------- Subscriptions ----------

func (tx *memTx) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if !tx.writable {
		return errReadOnly
	}
	tx.subs[subKey{sub.Subscriber, sub.PlanID}] = sub.Clone()
	return nil
}

func (tx *memTx) GetSubscription(ctx context.Context, subscriber string, planID int64) (*subscription.Subscription, error) {
	k := subKey{subscriber, planID}
	if tx.writable {
		if sub, ok := tx.subs[k]; ok {
			return sub.Clone(), nil
		}
	}
	if sub, ok := tx.s.subs[k]; ok {
		return sub.Clone(), nil
	}
	return nil, xerrors.Wrapf(xerrors.ErrNotFound, "subscription %s/%d", subscriber, planID)
}

func (tx *memTx) eachSubscription(fn func(sub *subscription.Subscription)) {
	seen := make(map[subKey]bool)
	if tx.writable {
		for k, sub := range tx.subs {
			seen[k] = true
			fn(sub)
		}
	}
	for k, sub := range tx.s.subs {
		if !seen[k] {
			fn(sub)
		}
	}
}

func (tx *memTx) ListSubscriptionsBySubscriber(ctx context.Context, subscriber string) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	tx.eachSubscription(func(sub *subscription.Subscription) {
		if sub.Subscriber == subscriber {
			out = append(out, sub.Clone())
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out, nil
}

func (tx *memTx) ListSubscriptionsByPlan(ctx context.Context, planID int64) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	tx.eachSubscription(func(sub *subscription.Subscription) {
		if sub.PlanID == planID {
			out = append(out, sub.Clone())
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Subscriber < out[j].Subscriber })
	return out, nil
}

func (tx *memTx) CountActiveByPlan(ctx context.Context, planID int64) (int64, error) {
	var n int64
	tx.eachSubscription(func(sub *subscription.Subscription) {
		if sub.PlanID == planID && sub.Active {
			n++
		}
	})
	return n, nil
}

// ---------- Passes ----------

func (tx *memTx) NextTokenID(ctx context.Context) (int64, error) {
	if !tx.writable {
		return 0, errReadOnly
	}
	id := tx.nextTokenID
	tx.nextTokenID++
	return id, nil
}

func (tx *memTx) PutPass(ctx context.Context, p *pass.Pass) error {
	if !tx.writable {
		return errReadOnly
	}
	delete(tx.passDeleted, p.TokenID)
	tx.passes[p.TokenID] = p.Clone()
	return nil
}

func (tx *memTx) GetPass(ctx context.Context, tokenID int64) (*pass.Pass, error) {
	if tx.writable {
		if tx.passDeleted[tokenID] {
			return nil, xerrors.Wrapf(xerrors.ErrNotFound, "pass %d", tokenID)
		}
		if p, ok := tx.passes[tokenID]; ok {
			return p.Clone(), nil
		}
	}
	if p, ok := tx.s.passes[tokenID]; ok {
		return p.Clone(), nil
	}
	return nil, xerrors.Wrapf(xerrors.ErrNotFound, "pass %d", tokenID)
}

func (tx *memTx) DeletePass(ctx context.Context, tokenID int64) error {
	if !tx.writable {
		return errReadOnly
	}
	if _, err := tx.GetPass(ctx, tokenID); err != nil {
		return err
	}
	delete(tx.passes, tokenID)
	tx.passDeleted[tokenID] = true
	return nil
}

// ---------- Balances / allowances ----------

func (tx *memTx) balance(k acctKey) int64 {
	if tx.writable {
		if v, ok := tx.balances[k]; ok {
			return v
		}
	}
	return tx.s.balances[k]
}

func (tx *memTx) Balance(ctx context.Context, token, holder string) (int64, error) {
	return tx.balance(acctKey{token, holder}), nil
}

func (tx *memTx) CreditBalance(ctx context.Context, token, holder string, amount int64) error {
	if !tx.writable {
		return errReadOnly
	}
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative credit")
	}
	k := acctKey{token, holder}
	tx.balances[k] = tx.balance(k) + amount
	return nil
}

func (tx *memTx) DebitBalance(ctx context.Context, token, holder string, amount int64) error {
	if !tx.writable {
		return errReadOnly
	}
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative debit")
	}
	k := acctKey{token, holder}
	cur := tx.balance(k)
	if cur < amount {
		return xerrors.Wrapf(xerrors.ErrInsufficientFunds, "balance of %s", holder)
	}
	tx.balances[k] = cur - amount
	return nil
}

func (tx *memTx) allowance(k allowKey) int64 {
	if tx.writable {
		if v, ok := tx.allowances[k]; ok {
			return v
		}
	}
	return tx.s.allowances[k]
}

func (tx *memTx) Allowance(ctx context.Context, token, owner, spender string) (int64, error) {
	return tx.allowance(allowKey{token, owner, spender}), nil
}

func (tx *memTx) SetAllowance(ctx context.Context, token, owner, spender string, amount int64) error {
	if !tx.writable {
		return errReadOnly
	}
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative allowance")
	}
	tx.allowances[allowKey{token, owner, spender}] = amount
	return nil
}

// ---------- Payments ----------

func (tx *memTx) AddPayment(ctx context.Context, p *payment.Payment) error {
	if !tx.writable {
		return errReadOnly
	}
	tx.payments = append(tx.payments, p.Clone())
	return nil
}

func (tx *memTx) eachPayment(fn func(p *payment.Payment)) {
	for _, p := range tx.s.payments {
		fn(p)
	}
	if tx.writable {
		for _, p := range tx.payments {
			fn(p)
		}
	}
}

func (tx *memTx) ListPaymentsByPayer(ctx context.Context, payer string, limit int) ([]*payment.Payment, error) {
	var out []*payment.Payment
	tx.eachPayment(func(p *payment.Payment) {
		if p.Payer == payer {
			out = append(out, p.Clone())
		}
	})
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (tx *memTx) RevenueByPlan(ctx context.Context, planID int64) (int64, error) {
	var sum int64
	tx.eachPayment(func(p *payment.Payment) {
		if p.PlanID == planID {
			sum += p.CreatorAmount
		}
	})
	return sum, nil
}

func (tx *memTx) TotalSpentBy(ctx context.Context, payer string) (int64, error) {
	var sum int64
	tx.eachPayment(func(p *payment.Payment) {
		if p.Payer == payer {
			sum += p.Amount
		}
	})
	return sum, nil
}

func (tx *memTx) TotalEarnedBy(ctx context.Context, creator string) (int64, error) {
	var sum int64
	tx.eachPayment(func(p *payment.Payment) {
		if p.Creator == creator {
			sum += p.CreatorAmount
		}
	})
	return sum, nil
}

func (tx *memTx) TotalFees(ctx context.Context) (int64, error) {
	var sum int64
	tx.eachPayment(func(p *payment.Payment) {
		sum += p.FeeAmount
	})
	return sum, nil
}
