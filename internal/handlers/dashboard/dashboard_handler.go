// internal/handlers/dashboard/dashboard_handler.go
package dashboard

import (
	"net/http"

	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/response"
	dashservice "subpass-service/internal/service/dashboard"
	planservice "subpass-service/internal/service/plans"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashService *dashservice.DashboardService
	planService *planservice.PlanService
}

func NewDashboardHandler(dashService *dashservice.DashboardService, planService *planservice.PlanService) *DashboardHandler {
	return &DashboardHandler{
		dashService: dashService,
		planService: planService,
	}
}

// Overview combines the subscriber and creator views of the caller
func (h *DashboardHandler) Overview(c *gin.Context) {
	address := middleware.MustGetAddress(c)

	subscriber, err := h.dashService.SubscriberStats(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}
	creator, err := h.dashService.CreatorStats(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", gin.H{
		"subscriber": subscriber,
		"creator":    creator,
	})
}

// SubscriberDashboard summarizes the caller as a subscriber
func (h *DashboardHandler) SubscriberDashboard(c *gin.Context) {
	address := middleware.MustGetAddress(c)
	result, err := h.dashService.SubscriberStats(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", result)
}

// CreatorDashboard summarizes the caller as a creator, with per-plan stats
func (h *DashboardHandler) CreatorDashboard(c *gin.Context) {
	address := middleware.MustGetAddress(c)

	stats, err := h.dashService.CreatorStats(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}
	plans, err := h.planService.CreatorPlans(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", gin.H{
		"stats": stats,
		"plans": plans,
	})
}

// PlatformStats is the admin overview
func (h *DashboardHandler) PlatformStats(c *gin.Context) {
	result, err := h.dashService.PlatformStats(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "platform stats retrieved", result)
}
