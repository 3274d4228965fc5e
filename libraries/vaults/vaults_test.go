package vaults

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
)

func TestMain(m *testing.M) {
	library.SetLogLevel(1)
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"))
}

var (
	borrower   = library.Prefix{0xb1}.Account(0)
	liquidator = library.Prefix{0x11}.Account(0)
)

type market struct {
	t       *testing.T
	ctx     context.Context
	chain   *chain.Chain
	c       *connector.Connector
	escrow  *Escrow
	lending *Lending
}

func newMarket(t *testing.T, supplyCap uint64) *market {
	host := chain.New()
	c, err := connector.New(host, connector.DefaultConfig())
	require.NoError(t, err)
	escrow, err := NewEscrow(c, library.Prefix{0xe5}.Account(0), "escrow", supplyCap)
	require.NoError(t, err)
	lending, err := NewLending(c, library.Prefix{0x1e}.Account(0), "lending", 0, 500)
	require.NoError(t, err)
	lending.SetCollateral(escrow.Address(), CollateralConfig{LTV: 8000, Price: PriceScale})
	host.Credit(lending.Address(), 10_000)
	return &market{t: t, ctx: context.Background(), chain: host, c: c, escrow: escrow, lending: lending}
}

func (m *market) deposit(account library.Address, amount uint64) {
	m.chain.Credit(account, amount)
	data := instructions.MustEncode(OpDeposit, DepositArgs{Receiver: account})
	_, err := m.chain.Invoke(m.ctx, account, m.escrow.Address(), amount, data)
	require.NoError(m.t, err)
}

func (m *market) self(op string, args any) connector.BatchItem {
	return connector.BatchItem{Target: m.c.Address(), Data: instructions.MustEncode(op, args)}
}

func (m *market) borrow(account library.Address, amount uint64) error {
	return m.c.Batch(m.ctx, account, []connector.BatchItem{
		m.self(instructions.OpEnableCollateral, instructions.VaultArgs{Account: account, Vault: m.escrow.Address()}),
		m.self(instructions.OpEnableController, instructions.VaultArgs{Account: account, Vault: m.lending.Address()}),
		{Target: m.lending.Address(), OnBehalfOf: account, Data: instructions.MustEncode(OpBorrow, BorrowArgs{Amount: amount})},
	})
}

func TestDeposit(t *testing.T) {
	m := newMarket(t, 0)
	m.deposit(borrower, 1000)
	assert.Equal(t, uint64(1000), m.escrow.BalanceOf(borrower))
	assert.Equal(t, uint64(1000), m.escrow.TotalShares())
	assert.Equal(t, uint64(1000), m.chain.BalanceOf(m.escrow.Address()))
	assert.Zero(t, m.chain.BalanceOf(m.c.Address()))
	assert.True(t, m.c.GetExecutionContext(m.ctx).AtRest())
}

func TestSupplyCap(t *testing.T) {
	m := newMarket(t, 500)
	m.chain.Credit(borrower, 600)
	data := instructions.MustEncode(OpDeposit, DepositArgs{Receiver: borrower})
	_, err := m.chain.Invoke(m.ctx, borrower, m.escrow.Address(), 600, data)
	assert.True(t, library.IsError(err, library.VaultStatusViolation))
	assert.ErrorIs(t, err, ErrCapExceeded)
	assert.Equal(t, uint64(600), m.chain.BalanceOf(borrower))
	assert.Zero(t, m.escrow.TotalShares())
}

func TestEscrowCannotControl(t *testing.T) {
	m := newMarket(t, 0)
	err := m.c.EnableController(m.ctx, borrower, borrower, m.escrow.Address())
	assert.True(t, library.IsError(err, library.AccountStatusViolation))
	assert.ErrorIs(t, err, ErrNotController)
}

func TestBorrowAndRepay(t *testing.T) {
	m := newMarket(t, 0)
	m.deposit(borrower, 1000)

	require.NoError(t, m.borrow(borrower, 700))
	assert.Equal(t, uint64(700), m.lending.DebtOf(borrower))
	assert.Equal(t, uint64(700), m.lending.TotalBorrows())
	assert.Equal(t, uint64(700), m.chain.BalanceOf(borrower))

	// 800 is the most 1000 shares at 80% can carry
	err := m.borrow(borrower, 101)
	assert.True(t, library.IsError(err, library.AccountStatusViolation))
	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Equal(t, uint64(700), m.lending.DebtOf(borrower))

	withdraw := instructions.MustEncode(OpWithdraw, WithdrawArgs{Amount: 200, Receiver: borrower})
	_, err = m.chain.Invoke(m.ctx, borrower, m.escrow.Address(), 0, withdraw)
	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Equal(t, uint64(1000), m.escrow.BalanceOf(borrower))

	disable := instructions.MustEncode(OpDisableController, nil)
	_, err = m.chain.Invoke(m.ctx, borrower, m.lending.Address(), 0, disable)
	assert.ErrorIs(t, err, ErrOutstandingDebt)

	repay := instructions.MustEncode(OpRepay, RepayArgs{Account: borrower})
	_, err = m.chain.Invoke(m.ctx, borrower, m.lending.Address(), 700, repay)
	require.NoError(t, err)
	assert.Zero(t, m.lending.DebtOf(borrower))
	assert.Zero(t, m.chain.BalanceOf(m.c.Address()))

	_, err = m.chain.Invoke(m.ctx, borrower, m.lending.Address(), 0, disable)
	require.NoError(t, err)
	assert.Empty(t, m.c.GetControllers(m.ctx, borrower))

	_, err = m.chain.Invoke(m.ctx, borrower, m.escrow.Address(), 0, withdraw)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), m.escrow.BalanceOf(borrower))
	assert.Equal(t, uint64(200), m.chain.BalanceOf(borrower))
}

func TestBorrowNeedsController(t *testing.T) {
	m := newMarket(t, 0)
	m.deposit(borrower, 1000)
	data := instructions.MustEncode(OpBorrow, BorrowArgs{Amount: 10})
	_, err := m.c.Call(m.ctx, borrower, m.lending.Address(), borrower, 0, data)
	assert.ErrorIs(t, err, ErrNotController)
	assert.Zero(t, m.lending.DebtOf(borrower))
}

func TestLiquidation(t *testing.T) {
	m := newMarket(t, 0)
	m.deposit(borrower, 1000)
	m.deposit(liquidator, 1000)
	require.NoError(t, m.borrow(borrower, 700))

	liquidate := connector.BatchItem{
		Target:     m.lending.Address(),
		OnBehalfOf: liquidator,
		Data:       instructions.MustEncode(OpLiquidate, LiquidateArgs{Violator: borrower, Collateral: m.escrow.Address(), Repay: 200}),
	}
	items := []connector.BatchItem{
		m.self(instructions.OpEnableCollateral, instructions.VaultArgs{Account: liquidator, Vault: m.escrow.Address()}),
		m.self(instructions.OpEnableController, instructions.VaultArgs{Account: liquidator, Vault: m.lending.Address()}),
		liquidate,
	}
	err := m.c.Batch(m.ctx, liquidator, items)
	assert.ErrorIs(t, err, ErrUnhealthy, "a healthy account cannot be liquidated")
	assert.Empty(t, m.c.GetControllers(m.ctx, liquidator))

	m.lending.SetCollateral(m.escrow.Address(), CollateralConfig{LTV: 8000, Price: 800_000})
	result, err := m.c.BatchSimulation(m.ctx, liquidator, items)
	require.NoError(t, err)
	for _, item := range result.Items {
		assert.True(t, item.Success, "%v", item.Err)
	}
	assert.Equal(t, uint64(700), m.lending.DebtOf(borrower), "simulation commits nothing")

	require.NoError(t, m.c.Batch(m.ctx, liquidator, items))
	// 200 repaid plus a 5% bonus, valued at 0.8 per share
	assert.Equal(t, uint64(738), m.escrow.BalanceOf(borrower))
	assert.Equal(t, uint64(1262), m.escrow.BalanceOf(liquidator))
	assert.Equal(t, uint64(500), m.lending.DebtOf(borrower))
	assert.Equal(t, uint64(200), m.lending.DebtOf(liquidator))
	assert.Equal(t, uint64(700), m.lending.TotalBorrows())
	assert.False(t, m.c.IsImpersonationInProgress(m.ctx))
}

func TestLiquidationRejects(t *testing.T) {
	m := newMarket(t, 0)
	m.deposit(borrower, 1000)
	require.NoError(t, m.borrow(borrower, 700))
	m.lending.SetCollateral(m.escrow.Address(), CollateralConfig{LTV: 8000, Price: 800_000})

	self := instructions.MustEncode(OpLiquidate, LiquidateArgs{Violator: borrower, Collateral: m.escrow.Address()})
	_, err := m.c.Call(m.ctx, borrower, m.lending.Address(), borrower, 0, self)
	assert.True(t, library.IsError(err, library.InvalidAddress))

	m.deposit(liquidator, 1000)
	require.NoError(t, m.borrow(liquidator, 1))
	unknown := instructions.MustEncode(OpLiquidate, LiquidateArgs{Violator: borrower, Collateral: library.Prefix{0x99}.Account(0)})
	_, err = m.c.Call(m.ctx, liquidator, m.lending.Address(), liquidator, 0, unknown)
	assert.True(t, library.IsError(err, library.InvalidAddress))
	assert.Equal(t, uint64(700), m.lending.DebtOf(borrower))
}

func TestUnknownOperation(t *testing.T) {
	m := newMarket(t, 0)
	_, err := m.c.Call(m.ctx, borrower, m.escrow.Address(), borrower, 0, instructions.MustEncode("flashLoan", nil))
	assert.True(t, library.IsError(err, library.InvalidData))
}
