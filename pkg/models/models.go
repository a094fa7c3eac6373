package models

import "math/big"

// EventKind identifies which contract event a ledger entry was derived from.
type EventKind string

const (
	KindJoined          EventKind = "Joined"
	KindBorrowerChosen  EventKind = "BorrowerSelected"
	KindLoanReleased    EventKind = "LoanReleased"
	KindEMIPaid         EventKind = "EMIPaid"
	KindProfitWithdrawn EventKind = "ProfitWithdrawn"
)

// DisplayCurrency selects the presentation lens for on-chain amounts.
// Toggling it never changes stored values, only how they render.
type DisplayCurrency int

const (
	CurrencyNative DisplayCurrency = iota
	CurrencyINR
)

// Tab identifies a dashboard panel.
type Tab int

const (
	TabOverview Tab = iota
	TabEMI
	TabProfit
	TabTransactions
)

// String returns the panel title shown in the tab bar.
func (t Tab) String() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabEMI:
		return "EMI"
	case TabProfit:
		return "Profit"
	case TabTransactions:
		return "Transactions"
	default:
		return "Unknown"
	}
}

// GroupCapacity is the fixed membership cap of the deployed contract.
// The client only reflects it; the contract enforces it.
const GroupCapacity = 3

// GroupSnapshot is the wholesale result of one snapshot refresh. Fields that
// failed to load are zero-valued and named in FieldErrors.
type GroupSnapshot struct {
	Members         []string
	PoolBalance     *big.Int // wei
	PoolINR         *big.Int
	EMIAmount       *big.Int // wei
	EMIINR          *big.Int
	MemberShareINR  *big.Int
	RemainingMonths uint64

	// FieldErrors maps a view name to the error message that prevented it
	// from loading, so one flaky call does not blank the whole dashboard.
	FieldErrors map[string]string
}

// LedgerEntry is one row of the transaction history, derived from a past
// contract event. Entries are fetched and re-sorted, never created locally.
type LedgerEntry struct {
	Kind     EventKind
	Actor    string
	Amount   *big.Int // wei; nil for events that carry no amount
	Detail   string   // e.g. installment index for EMIPaid
	Block    uint64
	LogIndex uint
	TxHash   string
}

// Session describes the connected wallet. A fresh connect replaces it
// wholesale; there is no explicit teardown.
type Session struct {
	Account  string
	Contract string
	ChainID  int64
	ReadOnly bool // no signing key configured
}
