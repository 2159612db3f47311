// internal/service/vault/vault_service.go
package vault

import (
	"context"

	"subpass-service/internal/domain/payment"
	"subpass-service/internal/domain/wallet"
	"subpass-service/internal/ledger"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/store"

	"go.uber.org/zap"
)

// VaultService manages the custodial token accounts that subscriptions are
// paid from. Deposits arrive via admin mint; spending approvals follow the
// usual owner/spender allowance model with the ledger as the only spender.
type VaultService struct {
	manager *ledger.Manager
	store   store.Store
	logger  *zap.Logger
}

func NewVaultService(manager *ledger.Manager, st store.Store, logger *zap.Logger) *VaultService {
	return &VaultService{manager: manager, store: st, logger: logger}
}

// Wallet returns an address's balances and its allowances toward the ledger.
func (s *VaultService) Wallet(ctx context.Context, address string) (*wallet.WalletResponse, error) {
	resp := &wallet.WalletResponse{Address: address}
	spender := s.manager.SpenderAddress()

	err := s.store.View(ctx, func(tx store.Tx) error {
		for _, info := range s.manager.Tokens() {
			amount, err := tx.Balance(ctx, info.Address, address)
			if err != nil {
				return err
			}
			resp.Balances = append(resp.Balances, wallet.Balance{
				Token:  info.Address,
				Symbol: info.Symbol,
				Amount: amount,
			})

			allowance, err := tx.Allowance(ctx, info.Address, address, spender)
			if err != nil {
				return err
			}
			if allowance > 0 {
				resp.Allowances = append(resp.Allowances, wallet.Allowance{
					Token:   info.Address,
					Owner:   address,
					Spender: spender,
					Amount:  allowance,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Approve sets the caller's allowance toward the ledger. Amount zero revokes.
func (s *VaultService) Approve(ctx context.Context, owner string, req *wallet.ApproveRequest) (*wallet.Allowance, error) {
	token, err := wallet.NormalizeAddress(req.Token)
	if err != nil {
		return nil, err
	}
	if _, ok := s.manager.Token(token); !ok {
		return nil, xerrors.Wrapf(xerrors.ErrValidation, "unknown payment token %s", token)
	}
	if req.Amount < 0 {
		return nil, xerrors.Wrap(xerrors.ErrValidation, "allowance must not be negative")
	}

	spender := s.manager.SpenderAddress()
	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.SetAllowance(ctx, token, owner, spender, req.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allowance set",
		zap.String("owner", owner),
		zap.String("token", token),
		zap.Int64("amount", req.Amount),
	)

	return &wallet.Allowance{Token: token, Owner: owner, Spender: spender, Amount: req.Amount}, nil
}

// Transfer moves funds between custodial accounts.
func (s *VaultService) Transfer(ctx context.Context, from string, req *wallet.TransferRequest) error {
	token, err := wallet.NormalizeAddress(req.Token)
	if err != nil {
		return err
	}
	to, err := wallet.NormalizeAddress(req.To)
	if err != nil {
		return err
	}
	if _, ok := s.manager.Token(token); !ok {
		return xerrors.Wrapf(xerrors.ErrValidation, "unknown payment token %s", token)
	}
	if req.Amount <= 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "amount must be positive")
	}
	if from == to {
		return xerrors.Wrap(xerrors.ErrValidation, "cannot transfer to self")
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.DebitBalance(ctx, token, from, req.Amount); err != nil {
			return err
		}
		return tx.CreditBalance(ctx, token, to, req.Amount)
	})
	if err != nil {
		return err
	}

	s.logger.Info("transfer",
		zap.String("token", token),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("amount", req.Amount),
	)
	return nil
}

// Mint credits a custodial balance out of thin air. Admin only; this is how
// deposits enter the system.
func (s *VaultService) Mint(ctx context.Context, req *wallet.MintRequest) error {
	token, err := wallet.NormalizeAddress(req.Token)
	if err != nil {
		return err
	}
	to, err := wallet.NormalizeAddress(req.To)
	if err != nil {
		return err
	}
	if _, ok := s.manager.Token(token); !ok {
		return xerrors.Wrapf(xerrors.ErrValidation, "unknown payment token %s", token)
	}
	if req.Amount <= 0 {
		return xerrors.Wrap(xerrors.ErrValidation, "amount must be positive")
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreditBalance(ctx, token, to, req.Amount)
	})
	if err != nil {
		return err
	}

	s.logger.Info("minted balance",
		zap.String("token", token),
		zap.String("to", to),
		zap.Int64("amount", req.Amount),
	)
	return nil
}

// Payments lists the caller's payment history, newest first.
func (s *VaultService) Payments(ctx context.Context, payer string, limit int) ([]*payment.Payment, error) {
	var out []*payment.Payment
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPaymentsByPayer(ctx, payer, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
