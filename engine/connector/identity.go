package connector

import (
	"context"
	"strconv"

	"vaultconnector/engine/library"
	"vaultconnector/messaging/journal"
)

// authenticateOwner accepts caller only as the owner of prefix, registering it on first use.
func (c *Connector) authenticateOwner(prefix library.Prefix, caller library.Address) error {
	if caller.Prefix() != prefix {
		return library.Fail(library.NotAuthorized, "%s is not the owner of %s", caller, prefix)
	}
	return c.registerOwner(prefix, caller)
}

// authenticateOwnerOrOperator accepts the owner of account or an operator whose bit for account is
// set. The result reports whether the caller got in as an operator.
func (c *Connector) authenticateOwnerOrOperator(account, caller library.Address) (operator bool, err error) {
	if library.HaveCommonOwner(account, caller) && c.identity.IsOwner(account.Prefix(), caller) {
		return false, c.registerOwner(account.Prefix(), caller)
	}
	if c.identity.IsOperatorAuthorized(account, caller) {
		return true, nil
	}
	return false, library.Fail(library.NotAuthorized, "%s may not act for %s", caller, account)
}

func (c *Connector) registerOwner(prefix library.Prefix, caller library.Address) error {
	registered, err := c.identity.RegisterOwnerIfAbsent(prefix, caller)
	if err != nil {
		return err
	}
	if registered {
		c.journal.Emit(journal.KindOwnerRegistered, nil, "prefix", prefix.Hex(), "owner", caller.Hex())
	}
	return nil
}

func (c *Connector) validOperator(owner, operator library.Address) error {
	if operator.IsZero() || operator == c.address || library.HaveCommonOwner(owner, operator) {
		return library.Fail(library.InvalidAddress, "%s cannot be an operator of %s", operator, owner.Prefix())
	}
	return nil
}

// SetOperator replaces operator's whole mask over the prefix. Only the owner may call it.
func (c *Connector) SetOperator(ctx context.Context, sender library.Address, prefix library.Prefix, operator library.Address, mask library.OperatorMask) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.setOperator(sender, prefix, operator, mask)
	})
}

func (c *Connector) setOperator(sender library.Address, prefix library.Prefix, operator library.Address, mask library.OperatorMask) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if err := c.authenticateOwner(prefix, sender); err != nil {
		return err
	}
	if err := c.validOperator(sender, operator); err != nil {
		return err
	}
	if !c.identity.SetOperatorMask(prefix, operator, mask) {
		return library.Fail(library.NoChange, "operator %s already holds mask %s", operator, mask.Hex())
	}
	c.journal.Emit(journal.KindOperatorStatus, nil, "prefix", prefix.Hex(), "operator", operator.Hex(), "mask", mask.Hex())
	return nil
}

// SetAccountOperator flips the single bit of operator for account. The owner may set or clear
// it; an authorized operator may only clear or set its own bit.
func (c *Connector) SetAccountOperator(ctx context.Context, sender, account, operator library.Address, authorized bool) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.setAccountOperator(sender, account, operator, authorized)
	})
}

func (c *Connector) setAccountOperator(sender, account, operator library.Address, authorized bool) error {
	if err := c.guard(true); err != nil {
		return err
	}
	isOperator, err := c.authenticateOwnerOrOperator(account, sender)
	if err != nil {
		return err
	}
	if isOperator && sender != operator {
		return library.Fail(library.NotAuthorized, "operator %s may only change its own authorization", sender)
	}
	owner := sender
	if isOperator {
		owner, _ = c.identity.Owner(account.Prefix())
	}
	if err := c.validOperator(owner, operator); err != nil {
		return err
	}
	prefix := account.Prefix()
	current := c.identity.OperatorMask(prefix, operator)
	next := current.With(account.Index(), authorized)
	if !c.identity.SetOperatorMask(prefix, operator, next) {
		return library.Fail(library.NoChange, "operator %s is already %s for %s", operator, authorizedWord(authorized), account)
	}
	c.journal.Emit(journal.KindOperatorStatus, nil, "prefix", prefix.Hex(), "operator", operator.Hex(), "mask", next.Hex())
	return nil
}

func authorizedWord(authorized bool) string {
	if authorized {
		return "authorized"
	}
	return "unauthorized"
}

// SetNonce fast-forwards the owner's nonce namespace, invalidating every permit below nonce.
func (c *Connector) SetNonce(ctx context.Context, sender library.Address, prefix library.Prefix, namespace, nonce uint64) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.setNonce(sender, prefix, namespace, nonce)
	})
}

func (c *Connector) setNonce(sender library.Address, prefix library.Prefix, namespace, nonce uint64) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if err := c.authenticateOwner(prefix, sender); err != nil {
		return err
	}
	if _, err := c.replay.SetNonce(prefix, namespace, nonce); err != nil {
		return err
	}
	c.journal.Emit(journal.KindNonceStatus, nil, "prefix", prefix.Hex(),
		"namespace", strconv.FormatUint(namespace, 10), "nonce", strconv.FormatUint(nonce, 10))
	return nil
}

// GetAccountOwner returns the registered owner of account's prefix, or the zero address.
func (c *Connector) GetAccountOwner(ctx context.Context, account library.Address) library.Address {
	_, release := c.enter(ctx)
	defer release()
	owner, _ := c.identity.Owner(account.Prefix())
	return owner
}

func (c *Connector) GetOperator(ctx context.Context, prefix library.Prefix, operator library.Address) library.OperatorMask {
	_, release := c.enter(ctx)
	defer release()
	return c.identity.OperatorMask(prefix, operator)
}

func (c *Connector) IsAccountOperatorAuthorized(ctx context.Context, account, operator library.Address) bool {
	_, release := c.enter(ctx)
	defer release()
	return c.identity.IsOperatorAuthorized(account, operator)
}

func (c *Connector) GetNonce(ctx context.Context, prefix library.Prefix, namespace uint64) uint64 {
	_, release := c.enter(ctx)
	defer release()
	return c.replay.GetNonce(prefix, namespace)
}

func (c *Connector) HaveCommonOwner(a, b library.Address) bool {
	return library.HaveCommonOwner(a, b)
}

func (c *Connector) GetAddressPrefix(account library.Address) library.Prefix {
	return account.Prefix()
}
