// Package fund holds the view-data loader and the action dispatcher: it
// aggregates read-only contract state into the store and submits
// state-changing calls, refreshing after each confirmation.
package fund

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chitpool/chitpool/internal/ledgerdb"
	"github.com/chitpool/chitpool/internal/store"
	"github.com/chitpool/chitpool/pkg/models"
)

// Gateway is the contract surface the service depends on. The chain session
// implements it; tests substitute a fake.
type Gateway interface {
	Describe() models.Session

	PoolBalance(ctx context.Context) (*big.Int, error)
	PoolInINR(ctx context.Context) (*big.Int, error)
	EMI(ctx context.Context) (*big.Int, error)
	EMIInINR(ctx context.Context) (*big.Int, error)
	MemberShareInINR(ctx context.Context) (*big.Int, error)
	RemainingMonths(ctx context.Context) (uint64, error)
	Members(ctx context.Context) ([]common.Address, error)
	FilterEvents(ctx context.Context) ([]models.LedgerEntry, error)

	JoinGroup(ctx context.Context, stake *big.Int) (*types.Receipt, error)
	Contribute(ctx context.Context, amount *big.Int) (*types.Receipt, error)
	SelectBorrower(ctx context.Context, borrower common.Address) (*types.Receipt, error)
	ReleaseFunds(ctx context.Context) (*types.Receipt, error)
	PayEMI(ctx context.Context, amount *big.Int) (*types.Receipt, error)
	WithdrawProfit(ctx context.Context) (*types.Receipt, error)
	WithdrawPartialProfit(ctx context.Context, amount *big.Int) (*types.Receipt, error)
}

// Service wires the gateway to the store and the local ledger archive.
type Service struct {
	gw      Gateway
	store   *store.Store
	archive *ledgerdb.Archive // nil disables the cache
	stake   *big.Int
	logger  *slog.Logger
}

// New builds a service. archive may be nil.
func New(gw Gateway, st *store.Store, archive *ledgerdb.Archive, stake *big.Int, logger *slog.Logger) *Service {
	return &Service{gw: gw, store: st, archive: archive, stake: stake, logger: logger}
}

// Connect records the gateway's session in the store.
func (s *Service) Connect() models.Session {
	session := s.gw.Describe()
	s.store.SetSession(session)
	return session
}

// RefreshSnapshot issues the read-only views concurrently and merges the
// results into one wholesale snapshot write. A failed view leaves its field
// zero-valued and named in FieldErrors instead of aborting the refresh; an
// error is returned only when every view failed.
func (s *Service) RefreshSnapshot(ctx context.Context) (models.GroupSnapshot, error) {
	snap := models.GroupSnapshot{FieldErrors: map[string]string{}}

	var mu sync.Mutex
	var wg sync.WaitGroup
	fail := func(field string, err error) {
		mu.Lock()
		defer mu.Unlock()
		snap.FieldErrors[field] = err.Error()
	}

	load := func(field string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				fail(field, err)
			}
		}()
	}

	load("poolBalance", func() error {
		v, err := s.gw.PoolBalance(ctx)
		if err == nil {
			mu.Lock()
			snap.PoolBalance = v
			mu.Unlock()
		}
		return err
	})
	load("poolINR", func() error {
		v, err := s.gw.PoolInINR(ctx)
		if err == nil {
			mu.Lock()
			snap.PoolINR = v
			mu.Unlock()
		}
		return err
	})
	load("emi", func() error {
		v, err := s.gw.EMI(ctx)
		if err == nil {
			mu.Lock()
			snap.EMIAmount = v
			mu.Unlock()
		}
		return err
	})
	load("emiINR", func() error {
		v, err := s.gw.EMIInINR(ctx)
		if err == nil {
			mu.Lock()
			snap.EMIINR = v
			mu.Unlock()
		}
		return err
	})
	load("memberShareINR", func() error {
		v, err := s.gw.MemberShareInINR(ctx)
		if err == nil {
			mu.Lock()
			snap.MemberShareINR = v
			mu.Unlock()
		}
		return err
	})
	load("remainingMonths", func() error {
		v, err := s.gw.RemainingMonths(ctx)
		if err == nil {
			mu.Lock()
			snap.RemainingMonths = v
			mu.Unlock()
		}
		return err
	})
	load("members", func() error {
		addrs, err := s.gw.Members(ctx)
		if err == nil {
			members := make([]string, len(addrs))
			for i, a := range addrs {
				members[i] = a.Hex()
			}
			mu.Lock()
			snap.Members = members
			mu.Unlock()
		}
		return err
	})

	wg.Wait()

	const fieldCount = 7
	if len(snap.FieldErrors) == fieldCount {
		return snap, fmt.Errorf("snapshot refresh failed: %s", snap.FieldErrors["poolBalance"])
	}
	if len(snap.FieldErrors) > 0 {
		s.logger.Warn("partial snapshot refresh", "failed_fields", len(snap.FieldErrors))
	}

	s.store.SetSnapshot(snap)
	return snap, nil
}

// RefreshLedger fetches the full event history, sorts it most recent first
// and stores it. The archive is updated best-effort; a cache write failure
// never fails the refresh.
func (s *Service) RefreshLedger(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := s.gw.FilterEvents(ctx)
	if err != nil {
		return nil, err
	}
	SortLedgerDesc(entries)
	s.store.SetLedger(entries)

	if s.archive != nil {
		if err := s.archive.Upsert(entries); err != nil {
			s.logger.Warn("ledger archive update failed", "error", err)
		}
	}
	return entries, nil
}

// RefreshAll refreshes snapshot and ledger, returning the first error.
func (s *Service) RefreshAll(ctx context.Context) error {
	_, snapErr := s.RefreshSnapshot(ctx)
	_, ledgerErr := s.RefreshLedger(ctx)
	if snapErr != nil {
		return snapErr
	}
	return ledgerErr
}

// CachedLedger loads the locally archived history, most recent first, and
// seeds the store with it. Used on cold start before the chain answers.
func (s *Service) CachedLedger() ([]models.LedgerEntry, error) {
	if s.archive == nil {
		return nil, nil
	}
	entries, err := s.archive.List()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.store.SetLedger(entries)
	}
	return entries, nil
}

// SortLedgerDesc orders entries by block number descending, log index as
// the tiebreak, so the most recent activity renders first.
func SortLedgerDesc(entries []models.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Block != entries[j].Block {
			return entries[i].Block > entries[j].Block
		}
		return entries[i].LogIndex > entries[j].LogIndex
	})
}
