package subscription

import (
	"context"
	"errors"
	"testing"

	"subpass-service/internal/domain/event"
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
	feeAddr       = "0x3333333333333333333333333333333333333333"
	managerAddr   = "0x4444444444444444444444444444444444444444"

	usdcPrice = int64(10_000_000)
	monthSecs = int64(30 * 24 * 60 * 60)
)

func newService(t *testing.T) (*SubscriptionService, *memory.Store) {
	return newServiceWithProducer(t, events.NopProducer{})
}

func newServiceWithProducer(t *testing.T, p events.Producer) (*SubscriptionService, *memory.Store) {
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

	svc := NewSubscriptionService(m, st, ws.NewHub(zap.NewNop()), p, metrics.New(), zap.NewNop())
	return svc, st
}

// captureProducer records the events handed to the fan-out path.
type captureProducer struct {
	events []*event.Event
}

func (p *captureProducer) Publish(ctx context.Context, e *event.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *captureProducer) Close() error { return nil }

func seedPlanAndFunds(t *testing.T, svc *SubscriptionService, st *memory.Store) *plan.Plan {
	t.Helper()
	ctx := context.Background()

	p, err := svc.manager.CreatePlan(ctx, creatorAddr, &plan.CreatePlanRequest{
		Name:         "Pro Tier",
		Description:  "Monthly membership",
		Price:        usdcPrice,
		Duration:     monthSecs,
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
	return p
}

func TestSubscribeAndList(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	p := seedPlanAndFunds(t, svc, st)

	charge, err := svc.Subscribe(ctx, subscriberAdr, p.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if charge.Payment.Amount != usdcPrice {
		t.Fatalf("payment amount = %d, want %d", charge.Payment.Amount, usdcPrice)
	}

	views, err := svc.ListBySubscriber(ctx, subscriberAdr)
	if err != nil {
		t.Fatalf("ListBySubscriber: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len(views) = %d, want 1", len(views))
	}
	v := views[0]
	if v.PlanName != "Pro Tier" || v.PlanPrice != usdcPrice || v.Creator != creatorAddr {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.TokenSymbol != "USDC" {
		t.Fatalf("token symbol = %q, want USDC", v.TokenSymbol)
	}

	owner, err := svc.OwnerOf(ctx, charge.Subscription.TokenID)
	if err != nil {
		t.Fatalf("OwnerOf: %v", err)
	}
	if owner != subscriberAdr {
		t.Fatalf("owner = %s, want %s", owner, subscriberAdr)
	}
}

func TestRenewThroughService(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	p := seedPlanAndFunds(t, svc, st)

	first, err := svc.Subscribe(ctx, subscriberAdr, p.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	renewed, err := svc.Renew(ctx, subscriberAdr, p.ID)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !renewed.Subscription.EndTime.After(first.Subscription.EndTime) {
		t.Fatal("renewal did not extend the window")
	}
	if renewed.Subscription.TokenID != first.Subscription.TokenID {
		t.Fatal("renewal must not mint a new pass")
	}
}

func TestCancelThroughService(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	p := seedPlanAndFunds(t, svc, st)

	charge, err := svc.Subscribe(ctx, subscriberAdr, p.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cancellation, err := svc.Cancel(ctx, subscriberAdr, p.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancellation.BurnedToken != charge.Subscription.TokenID {
		t.Fatalf("burned token = %d, want %d", cancellation.BurnedToken, charge.Subscription.TokenID)
	}

	if _, err := svc.OwnerOf(ctx, charge.Subscription.TokenID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("OwnerOf after burn = %v, want ErrNotFound", err)
	}
}

// Events must be fully stamped before the hub sees them: the client write
// pumps marshal the event concurrently, so nothing may write to it after
// fan-out begins.
func TestAnnouncedEventsAreStamped(t *testing.T) {
	cp := &captureProducer{}
	svc, st := newServiceWithProducer(t, cp)
	ctx := context.Background()
	p := seedPlanAndFunds(t, svc, st)

	if _, err := svc.Subscribe(ctx, subscriberAdr, p.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := svc.Renew(ctx, subscriberAdr, p.ID); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if _, err := svc.Cancel(ctx, subscriberAdr, p.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// subscribe and renew each settle a payment alongside their own event
	if len(cp.events) != 5 {
		t.Fatalf("len(events) = %d, want 5", len(cp.events))
	}
	seen := make(map[string]bool)
	for _, e := range cp.events {
		if e.ID == "" {
			t.Errorf("%s event has no ID", e.Type)
		}
		if e.At.IsZero() {
			t.Errorf("%s event has no timestamp", e.Type)
		}
		if seen[e.ID] {
			t.Errorf("duplicate event ID %s", e.ID)
		}
		seen[e.ID] = true
	}
}
