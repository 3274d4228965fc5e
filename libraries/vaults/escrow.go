package vaults

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
)

// Escrow holds deposits one to one as shares and can be enabled as collateral. It never lends
// and never controls an account.
type Escrow struct {
	base
	name        string
	supplyCap   uint64
	balances    map[library.Address]uint64
	totalShares uint64
}

// NewEscrow deploys an escrow at address. A supplyCap of zero means uncapped.
func NewEscrow(c *connector.Connector, address library.Address, name string, supplyCap uint64) (*Escrow, error) {
	e := &Escrow{
		base:      base{address: address, connector: c, host: c.Chain()},
		name:      name,
		supplyCap: supplyCap,
		balances:  make(map[library.Address]uint64),
	}
	if err := e.deploy(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Escrow) Invoke(ctx context.Context, msg chain.Message) ([]byte, error) {
	account, ok, result, err := e.actingAccount(ctx, msg)
	if !ok {
		return result, err
	}
	instruction, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}
	switch instruction.Op {
	case OpDeposit:
		var args DepositArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, e.deposit(ctx, msg.Value, args.Receiver)
	case OpWithdraw:
		var args WithdrawArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, e.withdraw(ctx, account, args.Amount, args.Receiver)
	case OpTransfer:
		var args TransferArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, e.transfer(ctx, account, args.To, args.Amount)
	}
	return nil, unknownOp(e.name, instruction.Op)
}

func (e *Escrow) deposit(ctx context.Context, amount uint64, receiver library.Address) error {
	if receiver.IsZero() {
		return library.Fail(library.InvalidAddress, "deposit needs a receiver")
	}
	e.balances[receiver] += amount
	e.totalShares += amount
	library.LogCLI(fmt.Sprintf("%s: %d deposited for %s", e.name, amount, receiver), 4)
	return e.connector.RequireVaultStatusCheck(ctx, e.address)
}

func (e *Escrow) withdraw(ctx context.Context, account library.Address, amount uint64, receiver library.Address) error {
	if err := e.debit(account, amount); err != nil {
		return err
	}
	e.totalShares -= amount
	if err := e.self.Transfer(receiver, amount); err != nil {
		return err
	}
	library.LogCLI(fmt.Sprintf("%s: %d withdrawn by %s to %s", e.name, amount, account, receiver), 4)
	return e.connector.RequireAccountAndVaultStatusCheck(ctx, e.address, account)
}

func (e *Escrow) transfer(ctx context.Context, from, to library.Address, amount uint64) error {
	if to.IsZero() {
		return library.Fail(library.InvalidAddress, "transfer needs a recipient")
	}
	if err := e.debit(from, amount); err != nil {
		return err
	}
	e.balances[to] += amount
	library.LogCLI(fmt.Sprintf("%s: %d moved from %s to %s", e.name, amount, from, to), 4)
	return e.connector.RequireAccountStatusCheck(ctx, from)
}

func (e *Escrow) debit(account library.Address, amount uint64) error {
	if e.balances[account] < amount {
		return fail(ErrInsufficientBalance, "%s holds %d shares of %s, needs %d", account, e.balances[account], e.name, amount)
	}
	e.balances[account] -= amount
	if e.balances[account] == 0 {
		delete(e.balances, account)
	}
	return nil
}

func (e *Escrow) BalanceOf(account library.Address) uint64 {
	return e.balances[account]
}

func (e *Escrow) TotalShares() uint64 {
	return e.totalShares
}

// CheckAccountStatus always fails: an escrow cannot be enabled as a controller.
func (e *Escrow) CheckAccountStatus(ctx context.Context, account library.Address, collaterals []library.Address) (library.Magic, error) {
	return library.Magic{}, fail(ErrNotController, "%s", e.name)
}

func (e *Escrow) CheckVaultStatus(ctx context.Context) (library.Magic, error) {
	if e.supplyCap > 0 && e.totalShares > e.supplyCap {
		return library.Magic{}, fail(ErrCapExceeded, "%s supply %d above cap %d", e.name, e.totalShares, e.supplyCap)
	}
	return connector.CheckVaultStatusMagic, nil
}

type escrowSnapshot struct {
	balances    map[library.Address]uint64
	totalShares uint64
}

func (e *Escrow) Snapshot() any {
	return escrowSnapshot{balances: maps.Clone(e.balances), totalShares: e.totalShares}
}

func (e *Escrow) Revert(v any) {
	s := v.(escrowSnapshot)
	e.balances = maps.Clone(s.balances)
	e.totalShares = s.totalShares
}

var _ connector.Vault = (*Escrow)(nil)
var _ chain.Revertible = (*Escrow)(nil)
var _ ShareHolder = (*Escrow)(nil)
