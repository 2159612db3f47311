// internal/domain/wallet/dto.go
package wallet

type ApproveRequest struct {
	Token  string `json:"token" binding:"required"`
	Amount int64  `json:"amount"`
}

type TransferRequest struct {
	Token  string `json:"token" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// MintRequest credits a custodial balance; admin only.
type MintRequest struct {
	Token  string `json:"token" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

type WalletResponse struct {
	Address    string      `json:"address"`
	Balances   []Balance   `json:"balances"`
	Allowances []Allowance `json:"allowances,omitempty"`
}
