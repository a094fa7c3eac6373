package fund

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitpool/chitpool/internal/store"
	"github.com/chitpool/chitpool/pkg/models"
)

// fakeGateway is an in-memory stand-in for the chain session.
type fakeGateway struct {
	pool    *big.Int
	poolINR *big.Int
	emi     *big.Int
	emiINR  *big.Int
	share   *big.Int
	months  uint64
	members []common.Address
	events  []models.LedgerEntry

	viewErr map[string]error // view name -> forced failure
	txErr   error

	joinedWith    []*big.Int
	contributions []*big.Int
	paidWith      []*big.Int
	borrower      common.Address
	releaseCalls  int
	withdrawals   []*big.Int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pool:    big.NewInt(30000000000000000), // 0.03
		poolINR: big.NewInt(15000),
		emi:     big.NewInt(10000000000000000), // 0.01
		emiINR:  big.NewInt(5000),
		share:   big.NewInt(1200),
		months:  5,
		members: []common.Address{
			common.HexToAddress("0x1111111111111111111111111111111111111111"),
			common.HexToAddress("0x2222222222222222222222222222222222222222"),
		},
		viewErr: map[string]error{},
	}
}

func (f *fakeGateway) Describe() models.Session {
	return models.Session{Account: "0xabc", Contract: "0xdef", ChainID: 1}
}

func (f *fakeGateway) view(name string, v *big.Int) (*big.Int, error) {
	if err := f.viewErr[name]; err != nil {
		return nil, err
	}
	return v, nil
}

func (f *fakeGateway) PoolBalance(ctx context.Context) (*big.Int, error) {
	return f.view("pool", f.pool)
}
func (f *fakeGateway) PoolInINR(ctx context.Context) (*big.Int, error) {
	return f.view("poolINR", f.poolINR)
}
func (f *fakeGateway) EMI(ctx context.Context) (*big.Int, error) { return f.view("emi", f.emi) }
func (f *fakeGateway) EMIInINR(ctx context.Context) (*big.Int, error) {
	return f.view("emiINR", f.emiINR)
}
func (f *fakeGateway) MemberShareInINR(ctx context.Context) (*big.Int, error) {
	return f.view("share", f.share)
}

func (f *fakeGateway) RemainingMonths(ctx context.Context) (uint64, error) {
	if err := f.viewErr["months"]; err != nil {
		return 0, err
	}
	return f.months, nil
}

func (f *fakeGateway) Members(ctx context.Context) ([]common.Address, error) {
	if err := f.viewErr["members"]; err != nil {
		return nil, err
	}
	return f.members, nil
}

func (f *fakeGateway) FilterEvents(ctx context.Context) ([]models.LedgerEntry, error) {
	if err := f.viewErr["events"]; err != nil {
		return nil, err
	}
	out := make([]models.LedgerEntry, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeGateway) receipt() (*types.Receipt, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &types.Receipt{
		TxHash: common.HexToHash("0xfeed"),
		Status: types.ReceiptStatusSuccessful,
	}, nil
}

func (f *fakeGateway) JoinGroup(ctx context.Context, stake *big.Int) (*types.Receipt, error) {
	f.joinedWith = append(f.joinedWith, stake)
	return f.receipt()
}

func (f *fakeGateway) Contribute(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	f.contributions = append(f.contributions, amount)
	return f.receipt()
}

func (f *fakeGateway) SelectBorrower(ctx context.Context, borrower common.Address) (*types.Receipt, error) {
	f.borrower = borrower
	return f.receipt()
}

func (f *fakeGateway) ReleaseFunds(ctx context.Context) (*types.Receipt, error) {
	if f.txErr == nil {
		f.releaseCalls++
		// The contract emits LoanReleased for the selected borrower with the
		// pool balance at that block.
		f.events = append(f.events, models.LedgerEntry{
			Kind:   models.KindLoanReleased,
			Actor:  f.borrower.Hex(),
			Amount: new(big.Int).Set(f.pool),
			Block:  uint64(100 + len(f.events)),
			TxHash: "0xfeed",
		})
	}
	return f.receipt()
}

func (f *fakeGateway) PayEMI(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	f.paidWith = append(f.paidWith, amount)
	return f.receipt()
}

func (f *fakeGateway) WithdrawProfit(ctx context.Context) (*types.Receipt, error) {
	return f.receipt()
}

func (f *fakeGateway) WithdrawPartialProfit(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	f.withdrawals = append(f.withdrawals, amount)
	return f.receipt()
}

func newTestService(gw Gateway) (*Service, *store.Store) {
	st := store.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stake := big.NewInt(10000000000000000)
	return New(gw, st, nil, stake, logger), st
}

func TestRefreshSnapshotMergesAllFields(t *testing.T) {
	gw := newFakeGateway()
	svc, st := newTestService(gw)

	snap, err := svc.RefreshSnapshot(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.FieldErrors)
	assert.Equal(t, "30000000000000000", snap.PoolBalance.String())
	assert.Equal(t, uint64(5), snap.RemainingMonths)
	assert.Len(t, snap.Members, 2)
	assert.LessOrEqual(t, len(snap.Members), models.GroupCapacity)

	// The store received the same wholesale write.
	assert.Equal(t, snap.PoolBalance.String(), st.Snapshot().PoolBalance.String())
}

func TestRefreshSnapshotSurfacesPartialFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.viewErr["members"] = errors.New("connection reset")
	svc, _ := newTestService(gw)

	snap, err := svc.RefreshSnapshot(context.Background())
	require.NoError(t, err)

	assert.Contains(t, snap.FieldErrors, "members")
	assert.Nil(t, snap.Members)
	// Unrelated fields still loaded.
	assert.Equal(t, "10000000000000000", snap.EMIAmount.String())
}

func TestRefreshSnapshotFailsWhenEveryViewFails(t *testing.T) {
	gw := newFakeGateway()
	boom := errors.New("node down")
	for _, field := range []string{"pool", "poolINR", "emi", "emiINR", "share", "months", "members"} {
		gw.viewErr[field] = boom
	}
	svc, _ := newTestService(gw)

	_, err := svc.RefreshSnapshot(context.Background())
	assert.Error(t, err)
}

func TestRefreshLedgerSortsDescending(t *testing.T) {
	gw := newFakeGateway()
	gw.events = []models.LedgerEntry{
		{Kind: models.KindJoined, Block: 10, LogIndex: 0},
		{Kind: models.KindEMIPaid, Block: 42, LogIndex: 1},
		{Kind: models.KindJoined, Block: 12, LogIndex: 0},
		{Kind: models.KindBorrowerChosen, Block: 42, LogIndex: 0},
	}
	svc, st := newTestService(gw)

	entries, err := svc.RefreshLedger(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		ordered := prev.Block > cur.Block ||
			(prev.Block == cur.Block && prev.LogIndex > cur.LogIndex)
		assert.True(t, ordered, "entries %d and %d out of order", i-1, i)
	}
	assert.Equal(t, models.KindEMIPaid, entries[0].Kind)
	assert.Equal(t, entries, st.Ledger())
}

func TestJoinGroupCarriesFixedStake(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	tx, err := svc.JoinGroup(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tx)

	require.Len(t, gw.joinedWith, 1)
	assert.Equal(t, "10000000000000000", gw.joinedWith[0].String())
}

func TestContributeIsRepeatableWithFixedAmount(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	// Contributing is a standing periodic action, not a one-shot like join.
	for i := 0; i < 3; i++ {
		tx, err := svc.Contribute(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, tx)
	}

	require.Len(t, gw.contributions, 3)
	for _, amount := range gw.contributions {
		assert.Equal(t, "10000000000000000", amount.String())
	}
}

func TestPayEMIPaysExactlyTheDueAmount(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, paid, err := svc.PayEMI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gw.emi.String(), paid.String())

	require.Len(t, gw.paidWith, 1)
	assert.Equal(t, gw.emi.String(), gw.paidWith[0].String())
}

func TestPayEMISubmitsZeroWhenNothingDue(t *testing.T) {
	gw := newFakeGateway()
	gw.emi = big.NewInt(0)
	svc, _ := newTestService(gw)

	_, paid, err := svc.PayEMI(context.Background())
	require.NoError(t, err)

	// No pre-validation: a zero payment goes to the contract as-is.
	assert.Equal(t, "0", paid.String())
	require.Len(t, gw.paidWith, 1)
	assert.Equal(t, "0", gw.paidWith[0].String())
}

func TestReleaseFundsAppendsLoanReleasedForBorrower(t *testing.T) {
	gw := newFakeGateway()
	svc, st := newTestService(gw)

	borrower := "0x3333333333333333333333333333333333333333"
	_, err := svc.SelectBorrower(context.Background(), borrower)
	require.NoError(t, err)

	_, err = svc.ReleaseFunds(context.Background())
	require.NoError(t, err)

	ledger := st.Ledger()
	require.NotEmpty(t, ledger)
	top := ledger[0]
	assert.Equal(t, models.KindLoanReleased, top.Kind)
	assert.Equal(t, common.HexToAddress(borrower).Hex(), top.Actor)
	assert.Equal(t, gw.pool.String(), top.Amount.String())
}

func TestSelectBorrowerPassesInputThrough(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	// Not validated client-side: garbage becomes the zero address and the
	// contract is the one to reject it.
	_, err := svc.SelectBorrower(context.Background(), "not-an-address")
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, gw.borrower)
}

func TestWithdrawPartialProfitConvertsDecimal(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, err := svc.WithdrawPartialProfit(context.Background(), "0.005")
	require.NoError(t, err)

	require.Len(t, gw.withdrawals, 1)
	assert.Equal(t, "5000000000000000", gw.withdrawals[0].String())
}

func TestFailedActionReturnsErrorWithoutRefresh(t *testing.T) {
	gw := newFakeGateway()
	gw.txErr = errors.New("execution reverted: group full")
	svc, st := newTestService(gw)

	_, err := svc.JoinGroup(context.Background())
	assert.Error(t, err)
	assert.Nil(t, st.Snapshot().PoolBalance)
}

func TestConnectRecordsSession(t *testing.T) {
	gw := newFakeGateway()
	svc, st := newTestService(gw)

	session := svc.Connect()
	assert.Equal(t, "0xabc", session.Account)
	assert.Equal(t, session, st.Session())
}
