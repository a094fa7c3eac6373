// Package chain is the wallet/contract gateway: it dials the JSON-RPC
// endpoint, derives the signing account, binds the deployed chit-fund
// contract and exposes its views, actions and historical events.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chitpool/chitpool/internal/config"
	"github.com/chitpool/chitpool/pkg/models"
)

// Backend is the subset of the Ethereum RPC surface the client uses.
// ethclient.Client satisfies it; tests substitute a stub.
type Backend interface {
	bind.ContractCaller
	bind.ContractTransactor
	bind.ContractFilterer
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Session is the bound contract handle plus the signing identity. Connect
// replaces it wholesale; there is no explicit teardown.
type Session struct {
	backend  Backend
	contract *bind.BoundContract
	abi      abi.ABI
	names    methodNames
	address  common.Address
	account  common.Address
	auth     *bind.TransactOpts
	chainID  int64
	wallet   string
	logger   *slog.Logger
}

// Connect dials the configured endpoint and binds the contract. It fails
// with a classified error instead of crashing when the endpoint is down.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, Classify(err))
	}
	return NewSession(client, cfg, logger)
}

// NewSession binds the contract over an already-established backend.
func NewSession(backend Backend, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	parsed, err := loadABI(cfg.ABIPath)
	if err != nil {
		return nil, err
	}

	s := &Session{
		backend: backend,
		abi:     parsed,
		names:   probeMethods(parsed),
		address: common.HexToAddress(cfg.ContractAddress),
		chainID: cfg.ChainID,
		wallet:  cfg.WalletLink,
		logger:  logger,
	}
	s.contract = bind.NewBoundContract(s.address, parsed, backend, backend, backend)

	if !cfg.ReadOnly() {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
		if err != nil {
			return nil, fmt.Errorf("build transactor: %w", err)
		}
		s.auth = auth
		s.account = crypto.PubkeyToAddress(key.PublicKey)
	}

	logger.Info("wallet connected",
		"contract", s.address.Hex(),
		"account", s.account.Hex(),
		"read_only", s.auth == nil,
	)
	return s, nil
}

// Describe reports the session for display.
func (s *Session) Describe() models.Session {
	account := ""
	if s.auth != nil {
		account = s.account.Hex()
	}
	return models.Session{
		Account:  account,
		Contract: s.address.Hex(),
		ChainID:  s.chainID,
		ReadOnly: s.auth == nil,
	}
}

// Account returns the signing address, zero when read-only.
func (s *Session) Account() common.Address {
	return s.account
}

// callUint issues a read-only view returning a single uint256.
func (s *Session) callUint(ctx context.Context, method string) (*big.Int, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: view not exposed by this deployment", ErrProvider)
	}
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, Classify(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", ErrProvider, method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T, want uint256", ErrProvider, method, out[0])
	}
	return v, nil
}

// PoolBalance reads the pooled amount through whichever accessor the
// deployment exposes (getPoolBalance or totalPool).
func (s *Session) PoolBalance(ctx context.Context) (*big.Int, error) {
	return s.callUint(ctx, s.names.pool)
}

// EMI reads the currently due installment amount.
func (s *Session) EMI(ctx context.Context) (*big.Int, error) {
	return s.callUint(ctx, s.names.emi)
}

// EMIInINR reads the installment amount in the secondary currency.
func (s *Session) EMIInINR(ctx context.Context) (*big.Int, error) {
	return s.callUint(ctx, s.names.emiINR)
}

// PoolInINR reads the pool balance in the secondary currency.
func (s *Session) PoolInINR(ctx context.Context) (*big.Int, error) {
	return s.callUint(ctx, s.names.poolINR)
}

// MemberShareInINR reads the caller's profit share in the secondary currency.
func (s *Session) MemberShareInINR(ctx context.Context) (*big.Int, error) {
	return s.callUint(ctx, s.names.shareINR)
}

// RemainingMonths reads the number of installments left.
func (s *Session) RemainingMonths(ctx context.Context) (uint64, error) {
	v, err := s.callUint(ctx, s.names.months)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Members reads the group roster in join order.
func (s *Session) Members(ctx context.Context) ([]common.Address, error) {
	if s.names.members == "" {
		return nil, fmt.Errorf("%w: getMembers not exposed by this deployment", ErrProvider)
	}
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, s.names.members); err != nil {
		return nil, Classify(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", ErrProvider, s.names.members)
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T, want address[]", ErrProvider, s.names.members, out[0])
	}
	return addrs, nil
}

// transact submits a state-changing call and blocks until it is mined.
// Success is reported only after the receipt confirms execution; a status-0
// receipt surfaces as ErrContractRevert. No timeout is applied beyond ctx.
func (s *Session) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if s.auth == nil {
		return nil, walletUnavailable(s.wallet)
	}
	if method == "" {
		return nil, fmt.Errorf("%w: method not exposed by this deployment", ErrProvider)
	}

	opts := *s.auth
	opts.Context = ctx
	opts.Value = value

	tx, err := s.contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, Classify(err)
	}

	s.logger.Info("transaction submitted", "method", method, "tx", tx.Hash().Hex())
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, Classify(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s", ErrContractRevert, tx.Hash().Hex())
	}

	s.logger.Info("transaction confirmed", "method", method, "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)
	return receipt, nil
}

// JoinGroup submits the membership transaction carrying the fixed stake.
func (s *Session) JoinGroup(ctx context.Context, stake *big.Int) (*types.Receipt, error) {
	return s.transact(ctx, stake, "joinGroup")
}

// Contribute deposits a periodic contribution into the pool. Separate from
// JoinGroup on deployments where joining takes no value.
func (s *Session) Contribute(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	return s.transact(ctx, amount, s.names.contribute)
}

// SelectBorrower names the next borrower. The address is passed through as
// given; the contract rejects malformed choices.
func (s *Session) SelectBorrower(ctx context.Context, borrower common.Address) (*types.Receipt, error) {
	return s.transact(ctx, nil, "selectBorrower", borrower)
}

// ReleaseFunds releases the pooled amount to the selected borrower.
func (s *Session) ReleaseFunds(ctx context.Context) (*types.Receipt, error) {
	return s.transact(ctx, nil, s.names.release)
}

// PayEMI submits an installment payment of exactly the given amount.
func (s *Session) PayEMI(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	return s.transact(ctx, amount, "payEMI")
}

// WithdrawProfit withdraws the caller's full accrued profit.
func (s *Session) WithdrawProfit(ctx context.Context) (*types.Receipt, error) {
	return s.transact(ctx, nil, s.names.withdrawAll)
}

// WithdrawPartialProfit withdraws the given wei amount of accrued profit.
func (s *Session) WithdrawPartialProfit(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	if s.names.withdrawPartial == "" {
		return nil, fmt.Errorf("%w: partial withdrawal not exposed by this deployment", ErrProvider)
	}
	return s.transact(ctx, nil, s.names.withdrawPartial, amount)
}

// ledgerEvents maps ABI event names to ledger kinds.
var ledgerEvents = map[string]models.EventKind{
	"MemberJoined":     models.KindJoined,
	"BorrowerSelected": models.KindBorrowerChosen,
	"LoanReleased":     models.KindLoanReleased,
	"EMIPaid":          models.KindEMIPaid,
	"ProfitWithdrawn":  models.KindProfitWithdrawn,
}

// FilterEvents fetches every historical contract event from genesis in one
// combined query and decodes them into ledger entries. No pagination is
// applied, matching the dashboard's full-history behavior.
func (s *Session) FilterEvents(ctx context.Context) ([]models.LedgerEntry, error) {
	var topics []common.Hash
	byTopic := make(map[common.Hash]string, len(ledgerEvents))
	for name := range ledgerEvents {
		ev, ok := s.abi.Events[name]
		if !ok {
			continue
		}
		topics = append(topics, ev.ID)
		byTopic[ev.ID] = name
	}

	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{s.address},
		Topics:    [][]common.Hash{topics},
	})
	if err != nil {
		return nil, Classify(err)
	}

	entries := make([]models.LedgerEntry, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) == 0 {
			continue
		}
		name, ok := byTopic[lg.Topics[0]]
		if !ok {
			continue
		}
		entry, err := s.decodeEvent(name, lg)
		if err != nil {
			s.logger.Warn("skipping undecodable event", "event", name, "tx", lg.TxHash.Hex(), "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Session) decodeEvent(name string, lg types.Log) (models.LedgerEntry, error) {
	entry := models.LedgerEntry{
		Kind:     ledgerEvents[name],
		Block:    lg.BlockNumber,
		LogIndex: lg.Index,
		TxHash:   lg.TxHash.Hex(),
	}
	if len(lg.Topics) > 1 {
		entry.Actor = common.BytesToAddress(lg.Topics[1].Bytes()).Hex()
	}

	if len(lg.Data) == 0 {
		return entry, nil
	}
	values, err := s.abi.Unpack(name, lg.Data)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	if len(values) > 0 {
		if amount, ok := values[0].(*big.Int); ok {
			entry.Amount = amount
		}
	}
	if name == "EMIPaid" && len(values) > 1 {
		if installment, ok := values[1].(*big.Int); ok {
			entry.Detail = fmt.Sprintf("installment %s", installment.String())
		}
	}
	return entry, nil
}
