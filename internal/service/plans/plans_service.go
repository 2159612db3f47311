// internal/service/plans/plans_service.go
package plans

import (
	"context"
	"fmt"
	"time"

	"subpass-service/internal/domain/event"
	"subpass-service/internal/domain/plan"
	"subpass-service/internal/domain/subscription"
	"subpass-service/internal/events"
	"subpass-service/internal/ledger"
	"subpass-service/internal/metrics"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"
	ws "subpass-service/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PlanService struct {
	manager  *ledger.Manager
	store    store.Store
	hub      *ws.Hub
	producer events.Producer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewPlanService(
	manager *ledger.Manager,
	st store.Store,
	hub *ws.Hub,
	producer events.Producer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		manager:  manager,
		store:    st,
		hub:      hub,
		producer: producer,
		metrics:  m,
		logger:   logger,
	}
}

// Create registers a new plan owned by the caller.
func (s *PlanService) Create(ctx context.Context, creator string, req *plan.CreatePlanRequest) (*plan.Plan, error) {
	p, err := s.manager.CreatePlan(ctx, creator, req)
	if err != nil {
		return nil, err
	}

	s.metrics.IncPlanCreated()
	s.announce(ctx, &event.Event{
		Type:   event.TypePlanCreated,
		PlanID: p.ID,
		Payload: map[string]interface{}{
			"name":    p.Name,
			"price":   p.Price,
			"creator": p.Creator,
		},
	})

	return p, nil
}

func (s *PlanService) Get(ctx context.Context, id int64) (*plan.Plan, error) {
	return s.manager.GetPlan(ctx, id)
}

func (s *PlanService) List(ctx context.Context, f plan.ListFilters) ([]*plan.Plan, error) {
	return s.manager.ListPlans(ctx, f)
}

// Update applies the caller's changes and notifies active subscribers.
func (s *PlanService) Update(ctx context.Context, caller string, planID int64, req *plan.UpdatePlanRequest) (*plan.Plan, error) {
	p, err := s.manager.UpdatePlan(ctx, caller, planID, req)
	if err != nil {
		return nil, err
	}

	audience, err := s.activeSubscribers(ctx, planID)
	if err != nil {
		s.logger.Warn("failed to resolve plan audience", zap.Error(err))
	}
	s.announce(ctx, &event.Event{
		Type:     event.TypePlanUpdated,
		Audience: audience,
		PlanID:   p.ID,
		Payload: map[string]interface{}{
			"name":  p.Name,
			"price": p.Price,
		},
	})

	return p, nil
}

// SetActive pauses or resumes a plan. Admins may moderate any plan.
func (s *PlanService) SetActive(ctx context.Context, caller string, planID int64, active, asAdmin bool) (*plan.Plan, error) {
	p, err := s.manager.SetPlanActive(ctx, caller, planID, active, asAdmin)
	if err != nil {
		return nil, err
	}

	audience, err := s.activeSubscribers(ctx, planID)
	if err != nil {
		s.logger.Warn("failed to resolve plan audience", zap.Error(err))
	}
	s.announce(ctx, &event.Event{
		Type:     event.TypePlanUpdated,
		Audience: audience,
		PlanID:   p.ID,
		Payload:  map[string]interface{}{"active": p.Active},
	})

	return p, nil
}

// Subscribers lists a plan's subscribers. Only the plan creator or an admin
// may see them.
func (s *PlanService) Subscribers(ctx context.Context, caller string, planID int64, asAdmin bool) ([]*subscription.SubscriberRow, error) {
	var rows []*subscription.SubscriberRow
	err := s.store.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if p.Creator != caller && !asAdmin {
			return xerrors.Wrap(xerrors.ErrForbidden, "not the plan creator")
		}

		subs, err := tx.ListSubscriptionsByPlan(ctx, planID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			rows = append(rows, &subscription.SubscriberRow{
				Subscriber: sub.Subscriber,
				TokenID:    sub.TokenID,
				Active:     sub.Active,
				EndTime:    sub.EndTime.Format(time.RFC3339),
				Renewals:   sub.Renewals,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreatorPlans lists a creator's plans with subscriber counts and revenue.
func (s *PlanService) CreatorPlans(ctx context.Context, creator string) ([]*plan.PlanWithStats, error) {
	var out []*plan.PlanWithStats
	err := s.store.View(ctx, func(tx store.Tx) error {
		plans, err := tx.ListPlans(ctx, plan.ListFilters{Creator: creator})
		if err != nil {
			return err
		}
		for _, p := range plans {
			count, err := tx.CountActiveByPlan(ctx, p.ID)
			if err != nil {
				return err
			}
			revenue, err := tx.RevenueByPlan(ctx, p.ID)
			if err != nil {
				return err
			}
			out = append(out, &plan.PlanWithStats{
				Plan:        p,
				Subscribers: count,
				Revenue:     revenue,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PlanService) activeSubscribers(ctx context.Context, planID int64) ([]string, error) {
	var audience []string
	err := s.store.View(ctx, func(tx store.Tx) error {
		subs, err := tx.ListSubscriptionsByPlan(ctx, planID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if sub.Active {
				audience = append(audience, sub.Subscriber)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list plan subscribers: %w", err)
	}
	return audience, nil
}

// announce stamps the event and fans it out. The hub marshals the event from
// its client write pumps, so no field may be written after Notify.
func (s *PlanService) announce(ctx context.Context, e *event.Event) {
	e.ID = uuid.NewString()
	e.At = time.Now()
	s.hub.Notify(e)
	if err := s.producer.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
