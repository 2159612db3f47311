// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"
	"strconv"

	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/response"
	subservice "subpass-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subService *subservice.SubscriptionService
}

func NewSubscriptionHandler(subService *subservice.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// Subscribe charges the caller and mints their membership pass
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	subscriber := middleware.MustGetAddress(c)
	result, err := h.subService.Subscribe(c.Request.Context(), subscriber, planID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "subscribed", result)
}

// Renew extends the caller's subscription by one period
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	subscriber := middleware.MustGetAddress(c)
	result, err := h.subService.Renew(c.Request.Context(), subscriber, planID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscription renewed", result)
}

// Cancel deactivates the caller's subscription and burns the pass
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	subscriber := middleware.MustGetAddress(c)
	result, err := h.subService.Cancel(c.Request.Context(), subscriber, planID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cancelled", result)
}

// GetSubscription returns the caller's subscription to a plan
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	planID, ok := planParam(c)
	if !ok {
		return
	}

	subscriber := middleware.MustGetAddress(c)
	result, err := h.subService.Get(c.Request.Context(), subscriber, planID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", result)
}

// ListMySubscriptions lists the caller's subscriptions with plan data
func (h *SubscriptionHandler) ListMySubscriptions(c *gin.Context) {
	subscriber := middleware.MustGetAddress(c)
	result, err := h.subService.ListBySubscriber(c.Request.Context(), subscriber)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

// GetPassOwner resolves the holder of a membership pass
func (h *SubscriptionHandler) GetPassOwner(c *gin.Context) {
	tokenID, err := strconv.ParseInt(c.Param("tokenId"), 10, 64)
	if err != nil || tokenID < 1 {
		response.Error(c, http.StatusBadRequest, "invalid token ID", err)
		return
	}

	owner, err := h.subService.OwnerOf(c.Request.Context(), tokenID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "pass owner retrieved", gin.H{
		"token_id": tokenID,
		"owner":    owner,
	})
}

func planParam(c *gin.Context) (int64, bool) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || planID < 1 {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return 0, false
	}
	return planID, true
}
