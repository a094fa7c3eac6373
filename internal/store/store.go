// Package store is the single owned container for UI-relevant state: the
// wallet session, the latest group snapshot, the fetched ledger and the
// presentation settings. The loader writes, the renderer reads; nothing
// else holds ambient state.
package store

import (
	"sync"

	"github.com/chitpool/chitpool/pkg/models"
)

// Store guards the current snapshot of everything the dashboard renders.
type Store struct {
	mu       sync.RWMutex
	session  models.Session
	snapshot models.GroupSnapshot
	ledger   []models.LedgerEntry
	tab      models.Tab
	currency models.DisplayCurrency
}

// New returns an empty store showing the Overview tab in native currency.
func New() *Store {
	return &Store{}
}

// SetSession replaces the wallet session wholesale. Reconnecting after an
// account switch goes through here; there is no partial update.
func (s *Store) SetSession(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// Session returns the current wallet session.
func (s *Store) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetSnapshot replaces the group snapshot wholesale.
func (s *Store) SetSnapshot(snap models.GroupSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

// Snapshot returns the latest group snapshot.
func (s *Store) Snapshot() models.GroupSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SetLedger replaces the transaction history.
func (s *Store) SetLedger(entries []models.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = entries
}

// Ledger returns a copy of the transaction history so renderers cannot
// alias the stored slice.
func (s *Store) Ledger() []models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LedgerEntry, len(s.ledger))
	copy(out, s.ledger)
	return out
}

// Tab returns the active dashboard tab.
func (s *Store) Tab() models.Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tab
}

// SetTab activates a dashboard tab.
func (s *Store) SetTab(tab models.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = tab
}

// Currency returns the active display currency.
func (s *Store) Currency() models.DisplayCurrency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// ToggleCurrency flips the presentation lens and returns the new value.
// Underlying amounts are untouched.
func (s *Store) ToggleCurrency() models.DisplayCurrency {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currency == models.CurrencyNative {
		s.currency = models.CurrencyINR
	} else {
		s.currency = models.CurrencyNative
	}
	return s.currency
}
