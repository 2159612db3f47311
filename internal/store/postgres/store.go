// internal/store/postgres/store.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"subpass-service/internal/domain/pass"
	"subpass-service/internal/domain/payment"
	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/subscription"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL driver. Every Update runs in one database
// transaction; counters live in a table so aborted transactions roll the
// allocation back and IDs stay gapless.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) nextCounter(ctx context.Context, name string) (int64, error) {
	var v int64
	err := t.tx.QueryRow(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = $1 RETURNING value`,
		name,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s counter: %w", name, err)
	}
	return v, nil
}

// ---------- Plans ----------

func (t *pgTx) NextPlanID(ctx context.Context) (int64, error) {
	return t.nextCounter(ctx, "plan_id")
}

func (t *pgTx) PutPlan(ctx context.Context, p *plan.Plan) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO plans (
			id, name, description, price, duration, payment_token,
			metadata_uri, tags, creator, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			metadata_uri = EXCLUDED.metadata_uri,
			tags = EXCLUDED.tags,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID, p.Name, p.Description, p.Price, p.Duration, p.PaymentToken,
		p.MetadataURI, p.Tags, p.Creator, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

const planColumns = `id, name, description, price, duration, payment_token,
	metadata_uri, tags, creator, active, created_at, updated_at`

func scanPlan(row pgx.Row) (*plan.Plan, error) {
	var p plan.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Duration, &p.PaymentToken,
		&p.MetadataURI, &p.Tags, &p.Creator, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	p, err := scanPlan(t.tx.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "plan %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return p, nil
}

func (t *pgTx) ListPlans(ctx context.Context, f plan.ListFilters) ([]*plan.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	var conds []string
	var args []interface{}

	if f.ActiveOnly {
		conds = append(conds, "active = TRUE")
	}
	if f.Creator != "" {
		args = append(args, f.Creator)
		conds = append(conds, fmt.Sprintf("creator = $%d", len(args)))
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------- Subscriptions ----------

func (t *pgTx) PutSubscription(ctx context.Context, s *subscription.Subscription) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO subscriptions (
			subscriber, plan_id, active, start_time, end_time, token_id,
			renewals, cancelled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (subscriber, plan_id) DO UPDATE SET
			active = EXCLUDED.active,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			token_id = EXCLUDED.token_id,
			renewals = EXCLUDED.renewals,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at
	`,
		s.Subscriber, s.PlanID, s.Active, s.StartTime, s.EndTime, s.TokenID,
		s.Renewals, s.CancelledAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

const subColumns = `subscriber, plan_id, active, start_time, end_time, token_id,
	renewals, cancelled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.Subscriber, &s.PlanID, &s.Active, &s.StartTime, &s.EndTime, &s.TokenID,
		&s.Renewals, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) GetSubscription(ctx context.Context, subscriber string, planID int64) (*subscription.Subscription, error) {
	s, err := scanSubscription(t.tx.QueryRow(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE subscriber = $1 AND plan_id = $2`,
		subscriber, planID))
	if err == pgx.ErrNoRows {
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "subscription %s/%d", subscriber, planID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return s, nil
}

func (t *pgTx) listSubscriptions(ctx context.Context, query string, args ...interface{}) ([]*subscription.Subscription, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *pgTx) ListSubscriptionsBySubscriber(ctx context.Context, subscriber string) ([]*subscription.Subscription, error) {
	return t.listSubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE subscriber = $1 ORDER BY plan_id`,
		subscriber)
}

func (t *pgTx) ListSubscriptionsByPlan(ctx context.Context, planID int64) ([]*subscription.Subscription, error) {
	return t.listSubscriptions(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE plan_id = $1 ORDER BY subscriber`,
		planID)
}

func (t *pgTx) CountActiveByPlan(ctx context.Context, planID int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE plan_id = $1 AND active = TRUE`,
		planID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return n, nil
}

// ---------- Passes ----------

func (t *pgTx) NextTokenID(ctx context.Context) (int64, error) {
	return t.nextCounter(ctx, "token_id")
}

func (t *pgTx) PutPass(ctx context.Context, p *pass.Pass) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO passes (token_id, owner, plan_id, metadata_uri, minted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.TokenID, p.Owner, p.PlanID, p.MetadataURI, p.MintedAt)
	if err != nil {
		return fmt.Errorf("failed to mint pass: %w", err)
	}
	return nil
}

func (t *pgTx) GetPass(ctx context.Context, tokenID int64) (*pass.Pass, error) {
	var p pass.Pass
	err := t.tx.QueryRow(ctx,
		`SELECT token_id, owner, plan_id, metadata_uri, minted_at FROM passes WHERE token_id = $1`,
		tokenID,
	).Scan(&p.TokenID, &p.Owner, &p.PlanID, &p.MetadataURI, &p.MintedAt)
	if err == pgx.ErrNoRows {
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "pass %d", tokenID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pass: %w", err)
	}
	return &p, nil
}

func (t *pgTx) DeletePass(ctx context.Context, tokenID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM passes WHERE token_id = $1`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to burn pass: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.Wrapf(xerrors.ErrNotFound, "pass %d", tokenID)
	}
	return nil
}

// ---------- Balances / allowances ----------

func (t *pgTx) Balance(ctx context.Context, token, holder string) (int64, error) {
	var amount int64
	err := t.tx.QueryRow(ctx,
		`SELECT amount FROM balances WHERE token = $1 AND holder = $2`,
		token, holder,
	).Scan(&amount)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return amount, nil
}

func (t *pgTx) CreditBalance(ctx context.Context, token, holder string, amount int64) error {
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative credit")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO balances (token, holder, amount) VALUES ($1, $2, $3)
		ON CONFLICT (token, holder) DO UPDATE SET amount = balances.amount + EXCLUDED.amount
	`, token, holder, amount)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (t *pgTx) DebitBalance(ctx context.Context, token, holder string, amount int64) error {
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative debit")
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE balances SET amount = amount - $3
		WHERE token = $1 AND holder = $2 AND amount >= $3
	`, token, holder, amount)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.Wrapf(xerrors.ErrInsufficientFunds, "balance of %s", holder)
	}
	return nil
}

func (t *pgTx) Allowance(ctx context.Context, token, owner, spender string) (int64, error) {
	var amount int64
	err := t.tx.QueryRow(ctx,
		`SELECT amount FROM allowances WHERE token = $1 AND owner = $2 AND spender = $3`,
		token, owner, spender,
	).Scan(&amount)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read allowance: %w", err)
	}
	return amount, nil
}

func (t *pgTx) SetAllowance(ctx context.Context, token, owner, spender string, amount int64) error {
	if amount < 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "negative allowance")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO allowances (token, owner, spender, amount) VALUES ($1, $2, $3, $4)
		ON CONFLICT (token, owner, spender) DO UPDATE SET amount = EXCLUDED.amount
	`, token, owner, spender, amount)
	if err != nil {
		return fmt.Errorf("failed to set allowance: %w", err)
	}
	return nil
}

// ---------- Payments ----------

func (t *pgTx) AddPayment(ctx context.Context, p *payment.Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments (
			reference, plan_id, payer, creator, token,
			amount, fee_amount, creator_amount, kind, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.Reference, p.PlanID, p.Payer, p.Creator, p.Token,
		p.Amount, p.FeeAmount, p.CreatorAmount, p.Kind, p.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (t *pgTx) ListPaymentsByPayer(ctx context.Context, payer string, limit int) ([]*payment.Payment, error) {
	query := `
		SELECT reference, plan_id, payer, creator, token,
		       amount, fee_amount, creator_amount, kind, paid_at
		FROM payments WHERE payer = $1 ORDER BY paid_at DESC`
	args := []interface{}{payer}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		var p payment.Payment
		err := rows.Scan(
			&p.Reference, &p.PlanID, &p.Payer, &p.Creator, &p.Token,
			&p.Amount, &p.FeeAmount, &p.CreatorAmount, &p.Kind, &p.PaidAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (t *pgTx) sumPayments(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var sum int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	return sum, nil
}

func (t *pgTx) RevenueByPlan(ctx context.Context, planID int64) (int64, error) {
	return t.sumPayments(ctx,
		`SELECT COALESCE(SUM(creator_amount), 0) FROM payments WHERE plan_id = $1`, planID)
}

func (t *pgTx) TotalSpentBy(ctx context.Context, payer string) (int64, error) {
	return t.sumPayments(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE payer = $1`, payer)
}

func (t *pgTx) TotalEarnedBy(ctx context.Context, creator string) (int64, error) {
	return t.sumPayments(ctx,
		`SELECT COALESCE(SUM(creator_amount), 0) FROM payments WHERE creator = $1`, creator)
}

func (t *pgTx) TotalFees(ctx context.Context) (int64, error) {
	return t.sumPayments(ctx,
		`SELECT COALESCE(SUM(fee_amount), 0) FROM payments`)
}
