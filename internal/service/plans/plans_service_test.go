package plans

import (
	"context"
	"errors"
	"testing"

	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/events"
	"subpass-service/internal/ledger"
	"subpass-service/internal/metrics"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"
	"subpass-service/internal/store/memory"
	ws "subpass-service/internal/websocket"

	"go.uber.org/zap"
)

const (
	usdcAddr      = "0xa0b86a33e6441b8c4505e2c8c5e6e8b8c4505e2c"
	creatorAddr   = "0x1111111111111111111111111111111111111111"
	subscriberAdr = "0x2222222222222222222222222222222222222222"
	strangerAddr  = "0x5555555555555555555555555555555555555555"
	feeAddr       = "0x3333333333333333333333333333333333333333"
	managerAddr   = "0x4444444444444444444444444444444444444444"
)

func newService(t *testing.T) (*PlanService, *memory.Store) {
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
	return NewPlanService(m, st, ws.NewHub(zap.NewNop()), events.NopProducer{}, metrics.New(), zap.NewNop()), st
}

func createPlan(t *testing.T, svc *PlanService) *plan.Plan {
	t.Helper()
	p, err := svc.Create(context.Background(), creatorAddr, &plan.CreatePlanRequest{
		Name:         "Pro Tier",
		Description:  "Monthly membership",
		Price:        10_000_000,
		Duration:     30 * 24 * 60 * 60,
		PaymentToken: usdcAddr,
		MetadataURI:  "https://example.com/pro.json",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func subscribe(t *testing.T, svc *PlanService, st *memory.Store, planID int64) {
	t.Helper()
	ctx := context.Background()
	err := st.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreditBalance(ctx, usdcAddr, subscriberAdr, 100_000_000); err != nil {
			return err
		}
		return tx.SetAllowance(ctx, usdcAddr, subscriberAdr, managerAddr, 100_000_000)
	})
	if err != nil {
		t.Fatalf("seed funds: %v", err)
	}
	if _, err := svc.manager.Subscribe(ctx, subscriberAdr, planID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
}

func TestSubscribersAccess(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	p := createPlan(t, svc)
	subscribe(t, svc, st, p.ID)

	rows, err := svc.Subscribers(ctx, creatorAddr, p.ID, false)
	if err != nil {
		t.Fatalf("Subscribers as creator: %v", err)
	}
	if len(rows) != 1 || rows[0].Subscriber != subscriberAdr {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if _, err := svc.Subscribers(ctx, strangerAddr, p.ID, false); !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("stranger = %v, want ErrForbidden", err)
	}

	// Admins may inspect any plan.
	if _, err := svc.Subscribers(ctx, strangerAddr, p.ID, true); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestCreatorPlansStats(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	p := createPlan(t, svc)
	subscribe(t, svc, st, p.ID)

	stats, err := svc.CreatorPlans(ctx, creatorAddr)
	if err != nil {
		t.Fatalf("CreatorPlans: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("len(stats) = %d, want 1", len(stats))
	}
	if stats[0].Subscribers != 1 {
		t.Fatalf("subscribers = %d, want 1", stats[0].Subscribers)
	}
	// 2.5 percent of 10 USDC goes to fees, the rest is creator revenue.
	if stats[0].Revenue != 9_750_000 {
		t.Fatalf("revenue = %d, want 9_750_000", stats[0].Revenue)
	}
}

func TestSetActiveModeration(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := createPlan(t, svc)

	if _, err := svc.SetActive(ctx, strangerAddr, p.ID, false, false); !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("stranger pause = %v, want ErrForbidden", err)
	}

	paused, err := svc.SetActive(ctx, strangerAddr, p.ID, false, true)
	if err != nil {
		t.Fatalf("admin pause: %v", err)
	}
	if paused.Active {
		t.Fatal("plan still active after admin pause")
	}
}
