// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"time"

	"subpass-service/internal/domain/event"
	"subpass-service/internal/domain/subscription"
	"subpass-service/internal/events"
	"subpass-service/internal/ledger"
	"subpass-service/internal/metrics"
	"subpass-service/internal/store"
	ws "subpass-service/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubscriptionService struct {
	manager  *ledger.Manager
	store    store.Store
	hub      *ws.Hub
	producer events.Producer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewSubscriptionService(
	manager *ledger.Manager,
	st store.Store,
	hub *ws.Hub,
	producer events.Producer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		manager:  manager,
		store:    st,
		hub:      hub,
		producer: producer,
		metrics:  m,
		logger:   logger,
	}
}

// Subscribe charges the caller for one period of the plan and mints their
// membership pass.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriber string, planID int64) (*ledger.Charge, error) {
	charge, err := s.manager.Subscribe(ctx, subscriber, planID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionEvent("subscribe")
	s.metrics.AddPaymentVolume(charge.Payment.Token, charge.Payment.Amount, charge.Payment.FeeAmount)

	s.announce(ctx, &event.Event{
		Type:       event.TypeSubscriptionCreated,
		Audience:   []string{charge.Subscription.Subscriber, charge.Plan.Creator},
		PlanID:     planID,
		Subscriber: charge.Subscription.Subscriber,
		TokenID:    charge.Subscription.TokenID,
		Payload: map[string]interface{}{
			"end_time": charge.Subscription.EndTime,
			"amount":   charge.Payment.Amount,
		},
	})
	s.announcePayment(ctx, charge)

	return charge, nil
}

// Renew charges the caller for another period and extends their window.
func (s *SubscriptionService) Renew(ctx context.Context, subscriber string, planID int64) (*ledger.Charge, error) {
	charge, err := s.manager.Renew(ctx, subscriber, planID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionEvent("renew")
	s.metrics.AddPaymentVolume(charge.Payment.Token, charge.Payment.Amount, charge.Payment.FeeAmount)

	s.announce(ctx, &event.Event{
		Type:       event.TypeSubscriptionRenewed,
		Audience:   []string{charge.Subscription.Subscriber, charge.Plan.Creator},
		PlanID:     planID,
		Subscriber: charge.Subscription.Subscriber,
		TokenID:    charge.Subscription.TokenID,
		Payload: map[string]interface{}{
			"end_time": charge.Subscription.EndTime,
			"renewals": charge.Subscription.Renewals,
		},
	})
	s.announcePayment(ctx, charge)

	return charge, nil
}

// Cancel deactivates the caller's subscription and burns their pass. No
// refund is issued for the remaining window.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriber string, planID int64) (*ledger.Cancellation, error) {
	cancellation, err := s.manager.Cancel(ctx, subscriber, planID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubscriptionEvent("cancel")

	s.announce(ctx, &event.Event{
		Type:       event.TypeSubscriptionCanceled,
		Audience:   []string{cancellation.Subscription.Subscriber, cancellation.Plan.Creator},
		PlanID:     planID,
		Subscriber: cancellation.Subscription.Subscriber,
		TokenID:    cancellation.BurnedToken,
	})

	return cancellation, nil
}

// Get returns the caller's subscription to a plan.
func (s *SubscriptionService) Get(ctx context.Context, subscriber string, planID int64) (*subscription.Subscription, error) {
	return s.manager.GetSubscription(ctx, subscriber, planID)
}

// OwnerOf resolves the current holder of a membership pass.
func (s *SubscriptionService) OwnerOf(ctx context.Context, tokenID int64) (string, error) {
	return s.manager.OwnerOf(ctx, tokenID)
}

// ListBySubscriber returns the caller's subscriptions joined with plan data.
func (s *SubscriptionService) ListBySubscriber(ctx context.Context, subscriber string) ([]*subscription.View, error) {
	var views []*subscription.View
	err := s.store.View(ctx, func(tx store.Tx) error {
		subs, err := tx.ListSubscriptionsBySubscriber(ctx, subscriber)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			p, err := tx.GetPlan(ctx, sub.PlanID)
			if err != nil {
				return err
			}
			v := &subscription.View{
				Subscription: sub,
				PlanName:     p.Name,
				PlanPrice:    p.Price,
				PaymentToken: p.PaymentToken,
				Creator:      p.Creator,
			}
			if info, ok := s.manager.Token(p.PaymentToken); ok {
				v.TokenSymbol = info.Symbol
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *SubscriptionService) announcePayment(ctx context.Context, charge *ledger.Charge) {
	s.announce(ctx, &event.Event{
		Type:       event.TypePaymentSettled,
		Audience:   []string{charge.Payment.Payer, charge.Payment.Creator, s.manager.FeeRecipient()},
		PlanID:     charge.Payment.PlanID,
		Subscriber: charge.Payment.Payer,
		Payload: map[string]interface{}{
			"reference":      charge.Payment.Reference,
			"token":          charge.Payment.Token,
			"amount":         charge.Payment.Amount,
			"fee_amount":     charge.Payment.FeeAmount,
			"creator_amount": charge.Payment.CreatorAmount,
			"kind":           charge.Payment.Kind,
		},
	})
}

// announce stamps the event and fans it out. The hub marshals the event from
// its client write pumps, so no field may be written after Notify.
func (s *SubscriptionService) announce(ctx context.Context, e *event.Event) {
	e.ID = uuid.NewString()
	e.At = time.Now()
	s.hub.Notify(e)
	if err := s.producer.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
