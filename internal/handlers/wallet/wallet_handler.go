// internal/handlers/wallet/wallet_handler.go
package wallet

import (
	"net/http"
	"strconv"

	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/response"
	"subpass-service/internal/service/vault"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	vaultService *vault.VaultService
}

func NewWalletHandler(vaultService *vault.VaultService) *WalletHandler {
	return &WalletHandler{
		vaultService: vaultService,
	}
}

// GetWallet returns the caller's balances and allowances
func (h *WalletHandler) GetWallet(c *gin.Context) {
	address := middleware.MustGetAddress(c)
	result, err := h.vaultService.Wallet(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "wallet retrieved", result)
}

// GetBalances returns only the caller's token balances
func (h *WalletHandler) GetBalances(c *gin.Context) {
	address := middleware.MustGetAddress(c)
	result, err := h.vaultService.Wallet(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "balances retrieved", result.Balances)
}

// GetAllowances returns only the caller's spending allowances
func (h *WalletHandler) GetAllowances(c *gin.Context) {
	address := middleware.MustGetAddress(c)
	result, err := h.vaultService.Wallet(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "allowances retrieved", result.Allowances)
}

// Approve sets the caller's spending allowance toward the ledger
func (h *WalletHandler) Approve(c *gin.Context) {
	var req wallet.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	owner := middleware.MustGetAddress(c)
	result, err := h.vaultService.Approve(c.Request.Context(), owner, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "allowance set", result)
}

// Transfer moves funds from the caller to another account
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req wallet.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	from := middleware.MustGetAddress(c)
	if err := h.vaultService.Transfer(c.Request.Context(), from, &req); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "transfer complete", nil)
}

// Mint credits a custodial balance; admin only
func (h *WalletHandler) Mint(c *gin.Context) {
	var req wallet.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	if err := h.vaultService.Mint(c.Request.Context(), &req); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "balance minted", nil)
}

// ListPayments lists the caller's payment history
func (h *WalletHandler) ListPayments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	payer := middleware.MustGetAddress(c)
	result, err := h.vaultService.Payments(c.Request.Context(), payer, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "payments retrieved", result)
}
