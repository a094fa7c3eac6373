package fund

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chitpool/chitpool/internal/currency"
)

// Every action follows the same path: submit, block until the receipt
// confirms execution, then refresh. Success is reported only downstream of
// a confirmed receipt. Input is passed through as given; the contract, not
// the client, rejects malformed calls.

// JoinGroup deposits the fixed stake and joins the group.
func (s *Service) JoinGroup(ctx context.Context) (string, error) {
	receipt, err := s.gw.JoinGroup(ctx, s.stake)
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "joinGroup")
	return receipt.TxHash.Hex(), nil
}

// Contribute deposits the fixed contribution amount into the pool. Unlike
// JoinGroup it can be repeated; each call moves one stake-sized amount.
func (s *Service) Contribute(ctx context.Context) (string, error) {
	receipt, err := s.gw.Contribute(ctx, s.stake)
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "contribute")
	return receipt.TxHash.Hex(), nil
}

// SelectBorrower names the next borrower from the raw input string.
func (s *Service) SelectBorrower(ctx context.Context, borrower string) (string, error) {
	receipt, err := s.gw.SelectBorrower(ctx, common.HexToAddress(borrower))
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "selectBorrower")
	return receipt.TxHash.Hex(), nil
}

// ReleaseFunds releases the pooled amount to the selected borrower.
func (s *Service) ReleaseFunds(ctx context.Context) (string, error) {
	receipt, err := s.gw.ReleaseFunds(ctx)
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "releaseFunds")
	return receipt.TxHash.Hex(), nil
}

// PayEMI reads the currently due installment and pays exactly that amount,
// even when it is zero. The read and the payment are not atomic; the due
// amount may change in between and the contract settles the difference.
func (s *Service) PayEMI(ctx context.Context) (string, *big.Int, error) {
	due, err := s.gw.EMI(ctx)
	if err != nil {
		return "", nil, err
	}
	receipt, err := s.gw.PayEMI(ctx, due)
	if err != nil {
		return "", nil, err
	}
	s.refreshAfter(ctx, "payEMI")
	return receipt.TxHash.Hex(), due, nil
}

// WithdrawProfit withdraws the caller's full accrued profit.
func (s *Service) WithdrawProfit(ctx context.Context) (string, error) {
	receipt, err := s.gw.WithdrawProfit(ctx)
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "withdrawProfit")
	return receipt.TxHash.Hex(), nil
}

// WithdrawPartialProfit withdraws the given decimal native-token amount.
func (s *Service) WithdrawPartialProfit(ctx context.Context, amount string) (string, error) {
	wei, err := currency.DecimalToWei(amount)
	if err != nil {
		return "", err
	}
	receipt, err := s.gw.WithdrawPartialProfit(ctx, wei)
	if err != nil {
		return "", err
	}
	s.refreshAfter(ctx, "withdrawPartialProfit")
	return receipt.TxHash.Hex(), nil
}

// refreshAfter re-reads chain state once an action confirmed. The action
// itself already succeeded, so refresh failures are logged, not returned.
func (s *Service) refreshAfter(ctx context.Context, action string) {
	if err := s.RefreshAll(ctx); err != nil {
		s.logger.Warn("refresh after action failed", "action", action, "error", err)
	}
}
