package connector

import (
	"context"

	"vaultconnector/engine/library"
	"vaultconnector/messaging/journal"
)

func (c *Connector) notConnector(vault library.Address) error {
	if vault == c.address {
		return library.Fail(library.InvalidAddress, "the connector cannot be used as a vault")
	}
	return nil
}

// authorizeAccountChange is the common prologue of collateral and controller management.
func (c *Connector) authorizeAccountChange(sender, account, vault library.Address) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if err := c.notConnector(vault); err != nil {
		return err
	}
	_, err := c.authenticateOwnerOrOperator(account, sender)
	return err
}

func (c *Connector) EnableCollateral(ctx context.Context, sender, account, vault library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.enableCollateral(ctx, sender, account, vault)
	})
}

func (c *Connector) enableCollateral(ctx context.Context, sender, account, vault library.Address) error {
	if err := c.authorizeAccountChange(sender, account, vault); err != nil {
		return err
	}
	inserted, err := c.accounts.EnableCollateral(account, vault)
	if err != nil {
		return err
	}
	if inserted {
		c.journal.Emit(journal.KindCollateralStatus, nil, "account", account.Hex(), "vault", vault.Hex(), "enabled", "true")
	}
	return c.requireAccountStatusCheck(ctx, account)
}

func (c *Connector) DisableCollateral(ctx context.Context, sender, account, vault library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.disableCollateral(ctx, sender, account, vault)
	})
}

func (c *Connector) disableCollateral(ctx context.Context, sender, account, vault library.Address) error {
	if err := c.authorizeAccountChange(sender, account, vault); err != nil {
		return err
	}
	if c.accounts.DisableCollateral(account, vault) {
		c.journal.Emit(journal.KindCollateralStatus, nil, "account", account.Hex(), "vault", vault.Hex(), "enabled", "false")
	}
	return c.requireAccountStatusCheck(ctx, account)
}

// ReorderCollaterals swaps two positions of the account's collateral list. Vaults may rely on the
// order when they value collateral.
func (c *Connector) ReorderCollaterals(ctx context.Context, sender, account library.Address, index1, index2 int) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.reorderCollaterals(ctx, sender, account, index1, index2)
	})
}

func (c *Connector) reorderCollaterals(ctx context.Context, sender, account library.Address, index1, index2 int) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if _, err := c.authenticateOwnerOrOperator(account, sender); err != nil {
		return err
	}
	if err := c.accounts.ReorderCollaterals(account, index1, index2); err != nil {
		return err
	}
	return c.requireAccountStatusCheck(ctx, account)
}

func (c *Connector) EnableController(ctx context.Context, sender, account, vault library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.enableController(ctx, sender, account, vault)
	})
}

func (c *Connector) enableController(ctx context.Context, sender, account, vault library.Address) error {
	if err := c.authorizeAccountChange(sender, account, vault); err != nil {
		return err
	}
	inserted, err := c.accounts.EnableController(account, vault)
	if err != nil {
		return err
	}
	if inserted {
		c.journal.Emit(journal.KindControllerStatus, nil, "account", account.Hex(), "vault", vault.Hex(), "enabled", "true")
	}
	return c.requireAccountStatusCheck(ctx, account)
}

// DisableController is called by a vault to release an account it controls. Only the vault
// itself can give up control.
func (c *Connector) DisableController(ctx context.Context, sender, account library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.disableController(ctx, sender, account)
	})
}

func (c *Connector) disableController(ctx context.Context, sender, account library.Address) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if c.accounts.DisableController(account, sender) {
		c.journal.Emit(journal.KindControllerStatus, nil, "account", account.Hex(), "vault", sender.Hex(), "enabled", "false")
	}
	return c.requireAccountStatusCheck(ctx, account)
}

func (c *Connector) GetCollaterals(ctx context.Context, account library.Address) []library.Address {
	_, release := c.enter(ctx)
	defer release()
	return c.accounts.Collaterals(account)
}

func (c *Connector) IsCollateralEnabled(ctx context.Context, account, vault library.Address) bool {
	_, release := c.enter(ctx)
	defer release()
	return c.accounts.IsCollateralEnabled(account, vault)
}

func (c *Connector) GetControllers(ctx context.Context, account library.Address) []library.Address {
	_, release := c.enter(ctx)
	defer release()
	return c.accounts.Controllers(account)
}

func (c *Connector) IsControllerEnabled(ctx context.Context, account, vault library.Address) bool {
	_, release := c.enter(ctx)
	defer release()
	return c.accounts.IsControllerEnabled(account, vault)
}
