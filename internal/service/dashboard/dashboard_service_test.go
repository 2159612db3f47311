package dashboard

import (
	"context"
	"testing"

	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/ledger"
	"subpass-service/internal/store"
	"subpass-service/internal/store/memory"

	"go.uber.org/zap"
)

const (
	usdcAddr      = "0xa0b86a33e6441b8c4505e2c8c5e6e8b8c4505e2c"
	creatorAddr   = "0x1111111111111111111111111111111111111111"
	subscriberAdr = "0x2222222222222222222222222222222222222222"
	feeAddr       = "0x3333333333333333333333333333333333333333"
	managerAddr   = "0x4444444444444444444444444444444444444444"
)

func seed(t *testing.T) *DashboardService {
	t.Helper()
	st := memory.New()
	m, err := ledger.NewManager(st, ledger.Config{
		FeeRecipient:   feeAddr,
		ManagerAddress: managerAddr,
		Tokens: []wallet.TokenInfo{
			{Address: usdcAddr, Symbol: "USDC", Decimals: 6},
		},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx := context.Background()
	p, err := m.CreatePlan(ctx, creatorAddr, &plan.CreatePlanRequest{
		Name:         "Pro Tier",
		Description:  "Monthly membership",
		Price:        10_000_000,
		Duration:     30 * 24 * 60 * 60,
		PaymentToken: usdcAddr,
		MetadataURI:  "https://example.com/pro.json",
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	err = st.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreditBalance(ctx, usdcAddr, subscriberAdr, 100_000_000); err != nil {
			return err
		}
		return tx.SetAllowance(ctx, usdcAddr, subscriberAdr, managerAddr, 100_000_000)
	})
	if err != nil {
		t.Fatalf("seed funds: %v", err)
	}
	if _, err := m.Subscribe(ctx, subscriberAdr, p.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := m.Renew(ctx, subscriberAdr, p.ID); err != nil {
		t.Fatalf("Renew: %v", err)
	}

	return NewDashboardService(st, zap.NewNop())
}

func TestSubscriberStats(t *testing.T) {
	svc := seed(t)

	stats, err := svc.SubscriberStats(context.Background(), subscriberAdr)
	if err != nil {
		t.Fatalf("SubscriberStats: %v", err)
	}
	if stats.Active != 1 || stats.Total != 1 {
		t.Fatalf("active/total = %d/%d, want 1/1", stats.Active, stats.Total)
	}
	if stats.TotalRenewals != 1 {
		t.Fatalf("renewals = %d, want 1", stats.TotalRenewals)
	}
	// Two charges of 10 USDC.
	if stats.TotalSpent != 20_000_000 {
		t.Fatalf("total spent = %d, want 20_000_000", stats.TotalSpent)
	}
}

func TestCreatorStats(t *testing.T) {
	svc := seed(t)

	stats, err := svc.CreatorStats(context.Background(), creatorAddr)
	if err != nil {
		t.Fatalf("CreatorStats: %v", err)
	}
	if stats.Plans != 1 || stats.ActivePlans != 1 {
		t.Fatalf("plans = %d/%d, want 1/1", stats.Plans, stats.ActivePlans)
	}
	if stats.Subscribers != 1 {
		t.Fatalf("subscribers = %d, want 1", stats.Subscribers)
	}
	// Creator keeps 97.5 percent of each charge.
	if stats.TotalEarned != 19_500_000 {
		t.Fatalf("total earned = %d, want 19_500_000", stats.TotalEarned)
	}
}

func TestPlatformStats(t *testing.T) {
	svc := seed(t)

	stats, err := svc.PlatformStats(context.Background())
	if err != nil {
		t.Fatalf("PlatformStats: %v", err)
	}
	if stats.Plans != 1 || stats.Subscriptions != 1 {
		t.Fatalf("plans/subs = %d/%d, want 1/1", stats.Plans, stats.Subscriptions)
	}
	if stats.TotalFees != 500_000 {
		t.Fatalf("total fees = %d, want 500_000", stats.TotalFees)
	}
}
