// internal/domain/wallet/entity.go
package wallet

import (
	"strings"

	xerrors "subpass-service/internal/pkg/errors"
)

// TokenInfo describes a fungible payment token registered with the platform.
// Amounts everywhere in the service are denominated in the token's smallest
// unit (base units), e.g. 10 USDC with 6 decimals is 10_000_000.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Balance is a single (token, holder) balance row.
type Balance struct {
	Token  string `json:"token"`
	Symbol string `json:"symbol"`
	Amount int64  `json:"amount"`
}

// Allowance is the amount a spender may pull from an owner's balance.
type Allowance struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

const hexDigits = "0123456789abcdef"

// NormalizeAddress lower-cases and validates a 0x-prefixed 20-byte hex address.
func NormalizeAddress(addr string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(addr))
	if len(a) != 42 || !strings.HasPrefix(a, "0x") {
		return "", xerrors.Wrapf(xerrors.ErrValidation, "malformed address %q", addr)
	}
	for _, c := range a[2:] {
		if !strings.ContainsRune(hexDigits, c) {
			return "", xerrors.Wrapf(xerrors.ErrValidation, "malformed address %q", addr)
		}
	}
	return a, nil
}

// ShortAddress renders an address the way the UI does: 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
