// internal/handlers/plans/plan_handler.go
package plans

import (
	"net/http"
	"strconv"

	"subpass-service/internal/domain/plan"
	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/response"
	planservice "subpass-service/internal/service/plans"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService *planservice.PlanService
}

func NewPlanHandler(planService *planservice.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// CreatePlan registers a plan owned by the caller
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req plan.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	creator := middleware.MustGetAddress(c)
	result, err := h.planService.Create(c.Request.Context(), creator, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "plan created", result)
}

// ListPlans retrieves plans with optional filters
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var filters plan.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.planService.List(c.Request.Context(), filters)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", result)
}

// GetPlan retrieves a single plan by ID
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	result, err := h.planService.Get(c.Request.Context(), planID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plan retrieved", result)
}

// UpdatePlan updates mutable fields of a plan the caller owns
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	var req plan.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	caller := middleware.MustGetAddress(c)
	result, err := h.planService.Update(c.Request.Context(), caller, planID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plan updated", result)
}

// ActivatePlan resumes a paused plan
func (h *PlanHandler) ActivatePlan(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivatePlan pauses a plan; existing subscriptions keep running
func (h *PlanHandler) DeactivatePlan(c *gin.Context) {
	h.setActive(c, false)
}

func (h *PlanHandler) setActive(c *gin.Context, active bool) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	caller := middleware.MustGetAddress(c)
	result, err := h.planService.SetActive(c.Request.Context(), caller, planID, active, middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plan updated", result)
}

// ListSubscribers lists a plan's subscribers for its creator
func (h *PlanHandler) ListSubscribers(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	caller := middleware.MustGetAddress(c)
	result, err := h.planService.Subscribers(c.Request.Context(), caller, planID, middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscribers retrieved", result)
}

func planParam(c *gin.Context) (int64, bool) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || planID < 1 {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return 0, false
	}
	return planID, true
}
