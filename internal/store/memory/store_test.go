package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"subpass-service/internal/domain/plan"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"
)

const (
	tokenAddr = "0xa0b86a33e6441b8c4505e2c8c5e6e8b8c4505e2c"
	holder    = "0x2222222222222222222222222222222222222222"
)

func TestUpdateRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		id, err := tx.NextPlanID(ctx)
		if err != nil {
			return err
		}
		if err := tx.PutPlan(ctx, &plan.Plan{ID: id, Name: "doomed", Creator: holder, Active: true}); err != nil {
			return err
		}
		if err := tx.CreditBalance(ctx, tokenAddr, holder, 500); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update error = %v, want boom", err)
	}

	err = s.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetPlan(ctx, 1); !xerrors.Is(err, xerrors.ErrNotFound) {
			t.Errorf("plan write leaked: %v", err)
		}
		bal, err := tx.Balance(ctx, tokenAddr, holder)
		if err != nil {
			return err
		}
		if bal != 0 {
			t.Errorf("balance write leaked: %d", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	// the aborted transaction must not burn the plan ID
	err = s.Update(ctx, func(tx store.Tx) error {
		id, err := tx.NextPlanID(ctx)
		if err != nil {
			return err
		}
		if id != 1 {
			t.Errorf("plan ID after rollback = %d, want 1", id)
		}
		return tx.PutPlan(ctx, &plan.Plan{ID: id, Name: "kept", Creator: holder, Active: true})
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.View(ctx, func(tx store.Tx) error {
		return tx.CreditBalance(ctx, tokenAddr, holder, 1)
	})
	if err == nil {
		t.Fatal("write inside View succeeded")
	}
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreditBalance(ctx, tokenAddr, holder, 300); err != nil {
			return err
		}
		bal, err := tx.Balance(ctx, tokenAddr, holder)
		if err != nil {
			return err
		}
		if bal != 300 {
			t.Errorf("staged balance = %d, want 300", bal)
		}
		if err := tx.DebitBalance(ctx, tokenAddr, holder, 100); err != nil {
			return err
		}
		bal, err = tx.Balance(ctx, tokenAddr, holder)
		if err != nil {
			return err
		}
		if bal != 200 {
			t.Errorf("staged balance after debit = %d, want 200", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = s.View(ctx, func(tx store.Tx) error {
		bal, err := tx.Balance(ctx, tokenAddr, holder)
		if err != nil {
			return err
		}
		if bal != 200 {
			t.Errorf("committed balance = %d, want 200", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestDebitBalanceInsufficient(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreditBalance(ctx, tokenAddr, holder, 50); err != nil {
			return err
		}
		return tx.DebitBalance(ctx, tokenAddr, holder, 51)
	})
	if !xerrors.Is(err, xerrors.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestListPlansFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	creators := []string{holder, holder, "0x3333333333333333333333333333333333333333"}
	err := s.Update(ctx, func(tx store.Tx) error {
		for i, c := range creators {
			id, err := tx.NextPlanID(ctx)
			if err != nil {
				return err
			}
			p := &plan.Plan{
				ID: id, Name: "p", Description: "d", Creator: c,
				Active: i != 1, CreatedAt: now, UpdatedAt: now,
			}
			if i == 0 {
				p.Tags = []string{"defi", "premium"}
			}
			if err := tx.PutPlan(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name    string
		filters plan.ListFilters
		wantIDs []int64
	}{
		{"all", plan.ListFilters{}, []int64{1, 2, 3}},
		{"active only", plan.ListFilters{ActiveOnly: true}, []int64{1, 3}},
		{"by creator", plan.ListFilters{Creator: holder}, []int64{1, 2}},
		{"by tag", plan.ListFilters{Tag: "premium"}, []int64{1}},
		{"no match", plan.ListFilters{Tag: "nope"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			err := s.View(ctx, func(tx store.Tx) error {
				plans, err := tx.ListPlans(ctx, tt.filters)
				if err != nil {
					return err
				}
				for _, p := range plans {
					got = append(got, p.ID)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("got %v, want %v", got, tt.wantIDs)
				}
			}
		})
	}
}
