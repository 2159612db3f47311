// internal/service/dashboard/dashboard_service.go
package dashboard

import (
	"context"

	"subpass-service/internal/domain/plan"
	"subpass-service/internal/store"

	"go.uber.org/zap"
)

// SubscriberStats summarizes an address's life as a subscriber.
type SubscriberStats struct {
	Address       string `json:"address"`
	Active        int    `json:"active_subscriptions"`
	Total         int    `json:"total_subscriptions"`
	TotalSpent    int64  `json:"total_spent"`
	TotalRenewals int    `json:"total_renewals"`
}

// CreatorStats summarizes an address's life as a plan creator.
type CreatorStats struct {
	Address     string `json:"address"`
	Plans       int    `json:"plans"`
	ActivePlans int    `json:"active_plans"`
	Subscribers int64  `json:"active_subscribers"`
	TotalEarned int64  `json:"total_earned"`
}

// PlatformStats is the admin overview.
type PlatformStats struct {
	Plans         int   `json:"plans"`
	Subscriptions int64 `json:"active_subscriptions"`
	TotalFees     int64 `json:"total_fees"`
}

type DashboardService struct {
	store  store.Store
	logger *zap.Logger
}

func NewDashboardService(st store.Store, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: st, logger: logger}
}

func (s *DashboardService) SubscriberStats(ctx context.Context, address string) (*SubscriberStats, error) {
	stats := &SubscriberStats{Address: address}
	err := s.store.View(ctx, func(tx store.Tx) error {
		subs, err := tx.ListSubscriptionsBySubscriber(ctx, address)
		if err != nil {
			return err
		}
		stats.Total = len(subs)
		for _, sub := range subs {
			if sub.Active {
				stats.Active++
			}
			stats.TotalRenewals += sub.Renewals
		}

		stats.TotalSpent, err = tx.TotalSpentBy(ctx, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *DashboardService) CreatorStats(ctx context.Context, address string) (*CreatorStats, error) {
	stats := &CreatorStats{Address: address}
	err := s.store.View(ctx, func(tx store.Tx) error {
		plans, err := tx.ListPlans(ctx, plan.ListFilters{Creator: address})
		if err != nil {
			return err
		}
		stats.Plans = len(plans)
		for _, p := range plans {
			if p.Active {
				stats.ActivePlans++
			}
			count, err := tx.CountActiveByPlan(ctx, p.ID)
			if err != nil {
				return err
			}
			stats.Subscribers += count
		}

		stats.TotalEarned, err = tx.TotalEarnedBy(ctx, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *DashboardService) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		plans, err := tx.ListPlans(ctx, plan.ListFilters{})
		if err != nil {
			return err
		}
		stats.Plans = len(plans)
		for _, p := range plans {
			count, err := tx.CountActiveByPlan(ctx, p.ID)
			if err != nil {
				return err
			}
			stats.Subscriptions += count
		}

		stats.TotalFees, err = tx.TotalFees(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
