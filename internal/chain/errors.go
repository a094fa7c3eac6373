package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy for everything that can go wrong between the client and
// the contract. Callers branch with errors.Is.
var (
	// ErrWalletUnavailable means no signing key is configured. Its message
	// carries the wallet onboarding link as the remediation hint.
	ErrWalletUnavailable = errors.New("wallet unavailable")

	// ErrUserRejected means the operator abandoned a pending action.
	ErrUserRejected = errors.New("user rejected request")

	// ErrProvider covers RPC transport and node failures.
	ErrProvider = errors.New("network or provider error")

	// ErrContractRevert means the contract rejected the call at execution.
	ErrContractRevert = errors.New("contract reverted")
)

// Classify wraps an error from the RPC layer into the taxonomy above.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrWalletUnavailable),
		errors.Is(err, ErrUserRejected),
		errors.Is(err, ErrProvider),
		errors.Is(err, ErrContractRevert):
		return err
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case strings.Contains(strings.ToLower(err.Error()), "revert"):
		return fmt.Errorf("%w: %v", ErrContractRevert, err)
	default:
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
}

func walletUnavailable(link string) error {
	return fmt.Errorf("%w: no signing key configured, set CHITPOOL_PRIVATE_KEY or install a wallet via %s", ErrWalletUnavailable, link)
}
