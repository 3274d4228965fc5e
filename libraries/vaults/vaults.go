// Package vaults holds two reference vaults built on the connector: an escrow that only holds
// collateral and a lending vault that controls borrowers and liquidates them through
// impersonation. Both are chain modules and are serialized by the connector session, they keep no
// locks of their own.
package vaults

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
)

const (
	OpDeposit           = "deposit"
	OpWithdraw          = "withdraw"
	OpTransfer          = "transfer"
	OpBorrow            = "borrow"
	OpRepay             = "repay"
	OpLiquidate         = "liquidate"
	OpDisableController = "disableController"
)

type DepositArgs struct {
	Receiver library.Address `json:"receiver"`
}

type WithdrawArgs struct {
	Amount   uint64          `json:"amount"`
	Receiver library.Address `json:"receiver"`
}

type TransferArgs struct {
	To     library.Address `json:"to"`
	Amount uint64          `json:"amount"`
}

type BorrowArgs struct {
	Amount   uint64          `json:"amount"`
	Receiver library.Address `json:"receiver"`
}

type RepayArgs struct {
	Account library.Address `json:"account"`
}

type LiquidateArgs struct {
	Violator   library.Address `json:"violator"`
	Collateral library.Address `json:"collateral"`
	Repay      uint64          `json:"repay"`
}

var (
	ErrInsufficientBalance = goerrors.New("insufficient balance", goerrors.CategoryValidation).WithTextCode("INSUFFICIENT_BALANCE")
	ErrUnhealthy           = goerrors.New("account is not sufficiently collateralized", goerrors.CategoryConflict).WithTextCode("UNHEALTHY")
	ErrCapExceeded         = goerrors.New("vault cap exceeded", goerrors.CategoryConflict).WithTextCode("CAP_EXCEEDED")
	ErrNotController       = goerrors.New("vault is not a controller", goerrors.CategoryOperation).WithTextCode("NOT_CONTROLLER")
	ErrOutstandingDebt     = goerrors.New("account has outstanding debt", goerrors.CategoryConflict).WithTextCode("OUTSTANDING_DEBT")
)

// ShareHolder is what a lending vault needs to value collateral held in another vault.
type ShareHolder interface {
	BalanceOf(account library.Address) uint64
}

// base is the connector plumbing every vault shares.
type base struct {
	address   library.Address
	connector *connector.Connector
	host      *chain.Chain
	self      *chain.Caller
}

// deploy registers module at the base's address and keeps the capability to act as it.
func (b *base) deploy(module chain.Module) error {
	self, err := b.host.Register(b.address, module)
	if err != nil {
		return err
	}
	b.self = self
	return nil
}

// actingAccount resolves who a message is for. Messages that do not come through the connector
// are sent back through it so that checks are deferred and the sender becomes the acting
// account; ok is false in that case and result holds the outcome.
func (b *base) actingAccount(ctx context.Context, msg chain.Message) (account library.Address, ok bool, result []byte, err error) {
	if msg.Sender != b.connector.Address() {
		if msg.Value > 0 {
			if err = b.self.Transfer(b.connector.Address(), msg.Value); err != nil {
				return
			}
		}
		result, err = b.connector.Callback(ctx, b.address, msg.Sender, msg.Value, msg.Data)
		return
	}
	account, _, err = b.connector.GetCurrentOnBehalfOfAccount(ctx, library.ZeroAddress)
	return account, err == nil, nil, err
}

func (b *base) Address() library.Address {
	return b.address
}

func decode(data []byte) (instructions.Instruction, error) {
	return instructions.Decode(data)
}

func unknownOp(vault string, op string) error {
	return library.Fail(library.InvalidData, "%s vault has no operation %q", vault, op)
}

func fail(sentinel *goerrors.Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
