package vault

import (
	"context"
	"errors"
	"testing"

	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/ledger"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"
	"subpass-service/internal/store/memory"

	"go.uber.org/zap"
)

const (
	usdcAddr    = "0xa0b86a33e6441b8c4505e2c8c5e6e8b8c4505e2c"
	aliceAddr   = "0x1111111111111111111111111111111111111111"
	bobAddr     = "0x2222222222222222222222222222222222222222"
	feeAddr     = "0x3333333333333333333333333333333333333333"
	managerAddr = "0x4444444444444444444444444444444444444444"
)

func newService(t *testing.T) (*VaultService, *memory.Store) {
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
	return NewVaultService(m, st, zap.NewNop()), st
}

func balance(t *testing.T, st *memory.Store, token, holder string) int64 {
	t.Helper()
	var out int64
	err := st.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.Balance(context.Background(), token, holder)
		return err
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return out
}

func TestMintAndWallet(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	err := svc.Mint(ctx, &wallet.MintRequest{Token: usdcAddr, To: aliceAddr, Amount: 5_000_000})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := balance(t, st, usdcAddr, aliceAddr); got != 5_000_000 {
		t.Fatalf("balance = %d, want 5_000_000", got)
	}

	resp, err := svc.Wallet(ctx, aliceAddr)
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if len(resp.Balances) != 1 || resp.Balances[0].Amount != 5_000_000 || resp.Balances[0].Symbol != "USDC" {
		t.Fatalf("unexpected balances: %+v", resp.Balances)
	}
	if len(resp.Allowances) != 0 {
		t.Fatalf("expected no allowances, got %+v", resp.Allowances)
	}
}

func TestMintValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  wallet.MintRequest
	}{
		{"unknown token", wallet.MintRequest{Token: "0x9999999999999999999999999999999999999999", To: aliceAddr, Amount: 1}},
		{"malformed recipient", wallet.MintRequest{Token: usdcAddr, To: "alice", Amount: 1}},
		{"zero amount", wallet.MintRequest{Token: usdcAddr, To: aliceAddr, Amount: 0}},
		{"negative amount", wallet.MintRequest{Token: usdcAddr, To: aliceAddr, Amount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Mint(ctx, &tt.req); !errors.Is(err, xerrors.ErrValidation) {
				t.Errorf("Mint = %v, want ErrValidation", err)
			}
		})
	}
}

func TestApprove(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	a, err := svc.Approve(ctx, aliceAddr, &wallet.ApproveRequest{Token: usdcAddr, Amount: 1_000_000})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if a.Spender != managerAddr {
		t.Fatalf("spender = %s, want %s", a.Spender, managerAddr)
	}

	var stored int64
	err = st.View(ctx, func(tx store.Tx) error {
		var err error
		stored, err = tx.Allowance(ctx, usdcAddr, aliceAddr, managerAddr)
		return err
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if stored != 1_000_000 {
		t.Fatalf("allowance = %d, want 1_000_000", stored)
	}

	// Zero revokes and is no longer listed on the wallet.
	if _, err := svc.Approve(ctx, aliceAddr, &wallet.ApproveRequest{Token: usdcAddr, Amount: 0}); err != nil {
		t.Fatalf("Approve(0): %v", err)
	}
	resp, err := svc.Wallet(ctx, aliceAddr)
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if len(resp.Allowances) != 0 {
		t.Fatalf("expected revoked allowance to be hidden, got %+v", resp.Allowances)
	}
}

func TestTransfer(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	if err := svc.Mint(ctx, &wallet.MintRequest{Token: usdcAddr, To: aliceAddr, Amount: 3_000_000}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	err := svc.Transfer(ctx, aliceAddr, &wallet.TransferRequest{Token: usdcAddr, To: bobAddr, Amount: 1_000_000})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := balance(t, st, usdcAddr, aliceAddr); got != 2_000_000 {
		t.Fatalf("sender balance = %d, want 2_000_000", got)
	}
	if got := balance(t, st, usdcAddr, bobAddr); got != 1_000_000 {
		t.Fatalf("recipient balance = %d, want 1_000_000", got)
	}

	err = svc.Transfer(ctx, aliceAddr, &wallet.TransferRequest{Token: usdcAddr, To: bobAddr, Amount: 10_000_000})
	if !errors.Is(err, xerrors.ErrInsufficientFunds) {
		t.Fatalf("overdraft = %v, want ErrInsufficientFunds", err)
	}

	err = svc.Transfer(ctx, aliceAddr, &wallet.TransferRequest{Token: usdcAddr, To: aliceAddr, Amount: 1})
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("self transfer = %v, want ErrValidation", err)
	}
}
