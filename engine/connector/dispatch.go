package connector

import (
	"context"
	"fmt"

	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
	"vaultconnector/messaging/journal"
	"vaultconnector/state/checks"
	"vaultconnector/state/execution"
)

type BatchItem = instructions.BatchItem

// nest runs fn one call level deeper.
func (c *Connector) nest(ctx context.Context, fn func() error) error {
	next, err := c.ec.IncreaseCallDepth(c.config.MaxCallDepth)
	if err != nil {
		return err
	}
	return c.within(ctx, next, fn)
}

// within runs fn under next. The execution context is restored whatever fn does, and if checks
// were not deferred before, every deferred check is verified before returning.
func (c *Connector) within(ctx context.Context, next execution.Context, fn func() error) (err error) {
	saved := c.ec
	c.ec = next
	func() {
		defer func() { c.ec = saved }()
		err = fn()
	}()
	if err != nil {
		return err
	}
	if !saved.ChecksDeferred {
		return c.checkStatusAll(ctx)
	}
	return nil
}

// resolveValue turns ValueAll into the connector's balance and rejects anything the connector
// cannot pay.
func (c *Connector) resolveValue(value uint64) (uint64, error) {
	balance := c.chain.BalanceOf(c.address)
	if value == library.ValueAll {
		return balance, nil
	}
	if value > balance {
		return 0, library.Fail(library.InvalidValue, "value %d exceeds the connector balance of %d", value, balance)
	}
	return value, nil
}

// callWithContext invokes target on the host with onBehalfOf as the acting account.
func (c *Connector) callWithContext(ctx context.Context, caller, target, onBehalfOf library.Address, value uint64, data []byte, next execution.Context) ([]byte, error) {
	value, err := c.resolveValue(value)
	if err != nil {
		return nil, err
	}
	saved := c.ec
	defer func() { c.ec = saved }()
	c.ec = next
	c.journal.Emit(journal.KindCallWithContext, nil,
		"caller", caller.Hex(), "prefix", onBehalfOf.Prefix().Hex(), "account", onBehalfOf.Hex(), "target", target.Hex())
	return c.self.Invoke(ctx, target, value, data)
}

// Call invokes target acting for onBehalfOf. The sender must own onBehalfOf or be its operator.
func (c *Connector) Call(ctx context.Context, sender, target, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	err = c.frameAs(ctx, sender, func(ctx context.Context) error {
		result, err = c.call(ctx, sender, target, onBehalfOf, value, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Connector) call(ctx context.Context, sender, target, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	if err := c.guard(true); err != nil {
		return nil, err
	}
	if target == c.address || target == sender {
		return nil, library.Fail(library.InvalidAddress, "%s cannot be the target of a call by %s", target, sender)
	}
	err = c.nest(ctx, func() error {
		operator, err := c.authenticateOwnerOrOperator(onBehalfOf, sender)
		if err != nil {
			return err
		}
		result, err = c.callWithContext(ctx, sender, target, onBehalfOf, value, data, c.ec.WithOnBehalfOf(onBehalfOf, operator))
		return err
	})
	return result, err
}

// Impersonate lets the single controller of onBehalfOf act on one of its collaterals, typically
// to seize it during a liquidation.
func (c *Connector) Impersonate(ctx context.Context, sender, collateral, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	err = c.frameAs(ctx, sender, func(ctx context.Context) error {
		result, err = c.impersonate(ctx, sender, collateral, onBehalfOf, value, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Connector) impersonate(ctx context.Context, sender, collateral, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	if err := c.guard(true); err != nil {
		return nil, err
	}
	if err := c.notConnector(collateral); err != nil {
		return nil, err
	}
	err = c.nest(ctx, func() error {
		controller, err := c.accounts.SingleController(onBehalfOf)
		if err != nil {
			return err
		}
		if controller != sender {
			return library.Fail(library.NotAuthorized, "%s is not the controller of %s", sender, onBehalfOf)
		}
		if !c.accounts.IsCollateralEnabled(onBehalfOf, collateral) {
			return library.Fail(library.NotAuthorized, "%s is not a collateral of %s", collateral, onBehalfOf)
		}
		result, err = c.callWithContext(ctx, sender, collateral, onBehalfOf, value, data,
			c.ec.WithOnBehalfOf(onBehalfOf, false).WithImpersonation())
		return err
	})
	return result, err
}

// Batch runs items in order as one unit. The first failing item aborts the batch and its error is
// returned as is.
func (c *Connector) Batch(ctx context.Context, sender library.Address, items []BatchItem) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.batch(ctx, sender, items)
	})
}

func (c *Connector) batch(ctx context.Context, sender library.Address, items []BatchItem) error {
	if err := c.guard(true); err != nil {
		return err
	}
	return c.nest(ctx, func() error {
		for i, item := range items {
			if _, err := c.batchItem(ctx, sender, item); err != nil {
				library.LogCLI(fmt.Sprintf("batch item %d of %d by %s failed: %s", i+1, len(items), sender, err), 3)
				return err
			}
		}
		return nil
	})
}

func (c *Connector) batchItem(ctx context.Context, sender library.Address, item BatchItem) ([]byte, error) {
	if item.Target == c.address {
		if !item.OnBehalfOf.IsZero() {
			return nil, library.Fail(library.InvalidAddress, "items addressed to the connector act for their sender")
		}
		if item.Value != 0 {
			return nil, library.Fail(library.InvalidValue, "items addressed to the connector carry no value")
		}
		return c.dispatchSelf(ctx, sender, item.Data, true)
	}
	if item.Target == sender {
		return nil, library.Fail(library.InvalidAddress, "%s cannot be the target of its own batch item", sender)
	}
	operator, err := c.authenticateOwnerOrOperator(item.OnBehalfOf, sender)
	if err != nil {
		return nil, err
	}
	return c.callWithContext(ctx, sender, item.Target, item.OnBehalfOf, item.Value, item.Data, c.ec.WithOnBehalfOf(item.OnBehalfOf, operator))
}

// Callback invokes the calling module back through the connector so that it runs with checks
// deferred and onBehalfOf as the acting account. The module is trusted to vouch for onBehalfOf.
// It does not count as a call level.
func (c *Connector) Callback(ctx context.Context, sender, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	err = c.frameAs(ctx, sender, func(ctx context.Context) error {
		result, err = c.callback(ctx, sender, onBehalfOf, value, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Connector) callback(ctx context.Context, sender, onBehalfOf library.Address, value uint64, data []byte) (result []byte, err error) {
	if err := c.guard(true); err != nil {
		return nil, err
	}
	if sender == c.address {
		return nil, library.Fail(library.NotAuthorized, "the connector cannot call itself back")
	}
	err = c.within(ctx, c.ec.WithChecksDeferred(), func() error {
		result, err = c.callWithContext(ctx, sender, sender, onBehalfOf, value, data, c.ec.WithOnBehalfOf(onBehalfOf, false))
		return err
	})
	return result, err
}

// dispatchSelf executes an instruction addressed to the connector with sender asserted as the
// caller. asserted is set when sender did not send the instruction itself (batch items, permits).
func (c *Connector) dispatchSelf(ctx context.Context, sender library.Address, data []byte, asserted bool) ([]byte, error) {
	instruction, err := instructions.Decode(data)
	if err != nil {
		return nil, err
	}
	switch instruction.Op {
	case instructions.OpCall:
		var args instructions.CallArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return c.call(ctx, sender, args.Target, args.OnBehalfOf, args.Value, args.Data)
	case instructions.OpImpersonate:
		var args instructions.CallArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return c.impersonate(ctx, sender, args.Target, args.OnBehalfOf, args.Value, args.Data)
	case instructions.OpBatch:
		var args instructions.BatchArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.batch(ctx, sender, args.Items)
	case instructions.OpCallback:
		if asserted {
			return nil, library.Fail(library.NotAuthorized, "callback is not available to batch items or permits")
		}
		var args instructions.CallbackArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return c.callback(ctx, sender, args.OnBehalfOf, args.Value, args.Data)
	case instructions.OpPermit:
		var args instructions.PermitArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.permit(ctx, sender, args)
	case instructions.OpEnableCollateral, instructions.OpDisableCollateral,
		instructions.OpEnableController:
		var args instructions.VaultArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		switch instruction.Op {
		case instructions.OpEnableCollateral:
			return nil, c.enableCollateral(ctx, sender, args.Account, args.Vault)
		case instructions.OpDisableCollateral:
			return nil, c.disableCollateral(ctx, sender, args.Account, args.Vault)
		default:
			return nil, c.enableController(ctx, sender, args.Account, args.Vault)
		}
	case instructions.OpReorderCollaterals:
		var args instructions.ReorderArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.reorderCollaterals(ctx, sender, args.Account, args.Index1, args.Index2)
	case instructions.OpSetNonce:
		var args instructions.SetNonceArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.setNonce(sender, args.Prefix, args.Namespace, args.Nonce)
	case instructions.OpSetOperator:
		var args instructions.SetOperatorArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.setOperator(sender, args.Prefix, args.Operator, args.Mask)
	case instructions.OpSetAccountOperator:
		var args instructions.SetAccountOperatorArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		return nil, c.setAccountOperator(sender, args.Account, args.Operator, args.Authorized)
	case instructions.OpDisableController, instructions.OpRequireAccountStatusCheck,
		instructions.OpRequireAccountStatusCheckNow, instructions.OpRequireAccountAndVaultStatusCheck,
		instructions.OpForgiveAccountStatusCheck:
		var args instructions.AccountArgs
		if err := instruction.Bind(&args); err != nil {
			return nil, err
		}
		switch instruction.Op {
		case instructions.OpDisableController:
			return nil, c.disableController(ctx, sender, args.Account)
		case instructions.OpRequireAccountStatusCheck:
			return nil, c.requireAccountStatusCheck(ctx, args.Account)
		case instructions.OpRequireAccountStatusCheckNow:
			return nil, c.requireAccountStatusCheckNow(ctx, args.Account)
		case instructions.OpRequireAccountAndVaultStatusCheck:
			return nil, c.requireAccountAndVaultStatusCheck(ctx, sender, args.Account)
		default:
			return nil, c.forgiveAccountStatusCheck(sender, args.Account)
		}
	case instructions.OpRequireAllAccountsStatusCheckNow:
		return nil, c.requireAllStatusChecksNow(ctx, checks.Accounts)
	case instructions.OpRequireVaultStatusCheck:
		return nil, c.requireVaultStatusCheck(ctx, sender)
	case instructions.OpRequireVaultStatusCheckNow:
		return nil, c.requireVaultStatusCheckNow(ctx, sender)
	case instructions.OpRequireAllVaultsStatusCheckNow:
		return nil, c.requireAllStatusChecksNow(ctx, checks.Vaults)
	case instructions.OpForgiveVaultStatusCheck:
		return nil, c.forgiveVaultStatusCheck(sender)
	}
	return nil, library.Fail(library.InvalidData, "unknown connector instruction %q", instruction.Op)
}
