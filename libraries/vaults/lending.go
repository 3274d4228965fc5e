package vaults

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
)

const (
	// PriceScale is the fixed point unit of collateral prices.
	PriceScale = 1_000_000
	// BasisPoints is the unit of loan-to-value ratios and the liquidation bonus.
	BasisPoints = 10_000
)

// CollateralConfig describes how a lending vault values shares of a collateral vault.
type CollateralConfig struct {
	// LTV is the share of the collateral value that can be borrowed, in basis points.
	LTV uint64
	// Price of one share in units of the borrowed asset, scaled by PriceScale.
	Price uint64
}

// Lending lends its native balance to accounts that enable it as their controller and accept
// collateral in the vaults it is configured with.
type Lending struct {
	base
	name             string
	borrowCap        uint64
	liquidationBonus uint64
	collaterals      map[library.Address]CollateralConfig
	debts            map[library.Address]uint64
	totalBorrows     uint64
}

// NewLending deploys a lending vault. A borrowCap of zero means uncapped; liquidationBonus is in
// basis points.
func NewLending(c *connector.Connector, address library.Address, name string, borrowCap, liquidationBonus uint64) (*Lending, error) {
	l := &Lending{
		base:             base{address: address, connector: c, host: c.Chain()},
		name:             name,
		borrowCap:        borrowCap,
		liquidationBonus: liquidationBonus,
		collaterals:      make(map[library.Address]CollateralConfig),
		debts:            make(map[library.Address]uint64),
	}
	if err := l.deploy(l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetCollateral accepts shares of vault as collateral. Setting a zero LTV stops accepting it.
func (l *Lending) SetCollateral(vault library.Address, config CollateralConfig) {
	if config.LTV == 0 {
		delete(l.collaterals, vault)
		return
	}
	l.collaterals[vault] = config
}

func (l *Lending) Invoke(ctx context.Context, msg chain.Message) ([]byte, error) {
	account, ok, result, err := l.actingAccount(ctx, msg)
	if !ok {
		return result, err
	}
	instruction, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}
	switch instruction.Op {
	case OpBorrow:
		var args BorrowArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, l.borrow(ctx, account, args.Amount, args.Receiver)
	case OpRepay:
		var args RepayArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, l.repay(ctx, msg.Value, args.Account)
	case OpLiquidate:
		var args LiquidateArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, l.liquidate(ctx, account, args)
	case OpDisableController:
		return nil, l.disableController(ctx, account)
	}
	return nil, unknownOp(l.name, instruction.Op)
}

// requireController fails unless this vault is the acting account's controller.
func (l *Lending) requireController(ctx context.Context) (library.Address, error) {
	account, enabled, err := l.connector.GetCurrentOnBehalfOfAccount(ctx, l.address)
	if err != nil {
		return library.ZeroAddress, err
	}
	if !enabled {
		return library.ZeroAddress, fail(ErrNotController, "%s does not control %s", l.name, account)
	}
	return account, nil
}

func (l *Lending) borrow(ctx context.Context, account library.Address, amount uint64, receiver library.Address) error {
	if _, err := l.requireController(ctx); err != nil {
		return err
	}
	if receiver.IsZero() {
		receiver = account
	}
	if err := l.self.Transfer(receiver, amount); err != nil {
		return err
	}
	l.debts[account] += amount
	l.totalBorrows += amount
	library.LogCLI(fmt.Sprintf("%s: %s borrowed %d", l.name, account, amount), 4)
	return l.connector.RequireAccountAndVaultStatusCheck(ctx, l.address, account)
}

func (l *Lending) repay(ctx context.Context, amount uint64, account library.Address) error {
	if amount > l.debts[account] {
		return fail(ErrInsufficientBalance, "repaying %d exceeds the %d %s owes", amount, l.debts[account], account)
	}
	l.debts[account] -= amount
	l.totalBorrows -= amount
	if l.debts[account] == 0 {
		delete(l.debts, account)
	}
	library.LogCLI(fmt.Sprintf("%s: %d repaid for %s", l.name, amount, account), 4)
	return l.connector.RequireVaultStatusCheck(ctx, l.address)
}

// disableController releases an account that owes nothing.
func (l *Lending) disableController(ctx context.Context, account library.Address) error {
	if l.debts[account] > 0 {
		return fail(ErrOutstandingDebt, "%s owes %d", account, l.debts[account])
	}
	return l.connector.DisableController(ctx, l.address, account)
}

// liquidate lets the acting account take over part of an unhealthy debt in exchange for the
// violator's collateral plus the liquidation bonus.
func (l *Lending) liquidate(ctx context.Context, liquidator library.Address, args LiquidateArgs) error {
	if _, err := l.requireController(ctx); err != nil {
		return err
	}
	if args.Violator == liquidator {
		return library.Fail(library.InvalidAddress, "%s cannot liquidate itself", liquidator)
	}
	if !l.connector.IsControllerEnabled(ctx, args.Violator, l.address) {
		return fail(ErrNotController, "%s does not control %s", l.name, args.Violator)
	}
	config, accepted := l.collaterals[args.Collateral]
	if !accepted {
		return library.Fail(library.InvalidAddress, "%s does not accept %s as collateral", l.name, args.Collateral)
	}
	if l.healthy(args.Violator, l.connector.GetCollaterals(ctx, args.Violator)) {
		return fail(ErrUnhealthy, "%s is healthy and cannot be liquidated", args.Violator)
	}
	repay := args.Repay
	if repay == 0 || repay > l.debts[args.Violator] {
		repay = l.debts[args.Violator]
	}
	seize := repay * (BasisPoints + l.liquidationBonus) / BasisPoints * PriceScale / config.Price
	if held := l.shares(args.Collateral, args.Violator); seize > held {
		seize = held
	}
	l.debts[args.Violator] -= repay
	if l.debts[args.Violator] == 0 {
		delete(l.debts, args.Violator)
	}
	l.debts[liquidator] += repay
	data, err := instructions.Encode(OpTransfer, TransferArgs{To: liquidator, Amount: seize})
	if err != nil {
		return err
	}
	if _, err := l.connector.Impersonate(ctx, l.address, args.Collateral, args.Violator, 0, data); err != nil {
		return err
	}
	library.LogCLI(fmt.Sprintf("%s: %s took over %d of %s's debt for %d shares", l.name, liquidator, repay, args.Violator, seize), 3)
	if err := l.connector.ForgiveAccountStatusCheck(ctx, l.address, args.Violator); err != nil {
		return err
	}
	return l.connector.RequireAccountAndVaultStatusCheck(ctx, l.address, liquidator)
}

func (l *Lending) shares(collateral, account library.Address) uint64 {
	m, ok := l.host.Module(collateral)
	if !ok {
		return 0
	}
	holder, ok := m.(ShareHolder)
	if !ok {
		return 0
	}
	return holder.BalanceOf(account)
}

// healthy reports whether the risk adjusted value of collaterals covers the account's debt.
func (l *Lending) healthy(account library.Address, collaterals []library.Address) bool {
	debt := l.debts[account]
	if debt == 0 {
		return true
	}
	var value uint64
	for _, collateral := range collaterals {
		config, ok := l.collaterals[collateral]
		if !ok {
			continue
		}
		value += l.shares(collateral, account) * config.Price / PriceScale * config.LTV / BasisPoints
		if value >= debt {
			return true
		}
	}
	return false
}

func (l *Lending) DebtOf(account library.Address) uint64 {
	return l.debts[account]
}

func (l *Lending) TotalBorrows() uint64 {
	return l.totalBorrows
}

func (l *Lending) CheckAccountStatus(ctx context.Context, account library.Address, collaterals []library.Address) (library.Magic, error) {
	if !l.healthy(account, collaterals) {
		return library.Magic{}, fail(ErrUnhealthy, "%s owes %d to %s", account, l.debts[account], l.name)
	}
	return connector.CheckAccountStatusMagic, nil
}

func (l *Lending) CheckVaultStatus(ctx context.Context) (library.Magic, error) {
	if l.borrowCap > 0 && l.totalBorrows > l.borrowCap {
		return library.Magic{}, fail(ErrCapExceeded, "%s borrows %d above cap %d", l.name, l.totalBorrows, l.borrowCap)
	}
	return connector.CheckVaultStatusMagic, nil
}

type lendingSnapshot struct {
	debts        map[library.Address]uint64
	totalBorrows uint64
}

func (l *Lending) Snapshot() any {
	return lendingSnapshot{debts: maps.Clone(l.debts), totalBorrows: l.totalBorrows}
}

func (l *Lending) Revert(v any) {
	s := v.(lendingSnapshot)
	l.debts = maps.Clone(s.debts)
	l.totalBorrows = s.totalBorrows
}

var _ connector.Vault = (*Lending)(nil)
var _ chain.Revertible = (*Lending)(nil)
