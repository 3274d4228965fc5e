package connector

import (
	"context"
	"fmt"

	"vaultconnector/engine/chain"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/journal"
	"vaultconnector/state/checks"
)

// StatusCheckResult is the outcome of one check run by a simulation sweep.
type StatusCheckResult struct {
	CheckedAddress library.Address `json:"checked_address"`
	IsValid        bool            `json:"is_valid"`
	Err            error           `json:"-"`
}

func (c *Connector) RequireAccountStatusCheck(ctx context.Context, account library.Address) error {
	return c.frame(ctx, func(ctx context.Context) error {
		return c.requireAccountStatusCheck(ctx, account)
	})
}

func (c *Connector) requireAccountStatusCheck(ctx context.Context, account library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	if c.ec.ChecksDeferred {
		return c.checks.Insert(checks.Accounts, account)
	}
	return c.checkNow(ctx, checks.Accounts, account)
}

// RequireVaultStatusCheck is called by a vault about itself.
func (c *Connector) RequireVaultStatusCheck(ctx context.Context, sender library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.requireVaultStatusCheck(ctx, sender)
	})
}

func (c *Connector) requireVaultStatusCheck(ctx context.Context, vault library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	if c.ec.ChecksDeferred {
		return c.checks.Insert(checks.Vaults, vault)
	}
	return c.checkNow(ctx, checks.Vaults, vault)
}

// RequireAccountAndVaultStatusCheck requests both checks vaults need after moving an account's
// funds.
func (c *Connector) RequireAccountAndVaultStatusCheck(ctx context.Context, sender, account library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.requireAccountAndVaultStatusCheck(ctx, sender, account)
	})
}

func (c *Connector) requireAccountAndVaultStatusCheck(ctx context.Context, vault, account library.Address) error {
	if err := c.requireAccountStatusCheck(ctx, account); err != nil {
		return err
	}
	return c.requireVaultStatusCheck(ctx, vault)
}

func (c *Connector) RequireAccountStatusCheckNow(ctx context.Context, account library.Address) error {
	return c.frame(ctx, func(ctx context.Context) error {
		return c.requireAccountStatusCheckNow(ctx, account)
	})
}

func (c *Connector) requireAccountStatusCheckNow(ctx context.Context, account library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	c.checks.Remove(checks.Accounts, account)
	return c.checkNow(ctx, checks.Accounts, account)
}

func (c *Connector) RequireVaultStatusCheckNow(ctx context.Context, sender library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.requireVaultStatusCheckNow(ctx, sender)
	})
}

func (c *Connector) requireVaultStatusCheckNow(ctx context.Context, vault library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	c.checks.Remove(checks.Vaults, vault)
	return c.checkNow(ctx, checks.Vaults, vault)
}

func (c *Connector) RequireAllAccountsStatusCheckNow(ctx context.Context) error {
	return c.frame(ctx, func(ctx context.Context) error {
		return c.requireAllStatusChecksNow(ctx, checks.Accounts)
	})
}

func (c *Connector) RequireAllVaultsStatusCheckNow(ctx context.Context) error {
	return c.frame(ctx, func(ctx context.Context) error {
		return c.requireAllStatusChecksNow(ctx, checks.Vaults)
	})
}

func (c *Connector) requireAllStatusChecksNow(ctx context.Context, t checks.SetType) error {
	if err := c.guard(false); err != nil {
		return err
	}
	saved := c.ec
	defer func() { c.ec = saved }()
	c.ec = saved.WithChecksInProgress()
	return c.checks.DrainWithCallback(t, func(member library.Address) error {
		return c.check(ctx, t, member)
	})
}

// ForgiveAccountStatusCheck drops a pending account check. Only the account's controller may
// forgive it, after it has made sure the account is in a state it accepts.
func (c *Connector) ForgiveAccountStatusCheck(ctx context.Context, sender, account library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.forgiveAccountStatusCheck(sender, account)
	})
}

func (c *Connector) forgiveAccountStatusCheck(sender, account library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	controller, err := c.accounts.SingleController(account)
	if err != nil {
		return err
	}
	if controller != sender {
		return library.Fail(library.NotAuthorized, "%s is not the controller of %s", sender, account)
	}
	c.checks.Remove(checks.Accounts, account)
	return nil
}

// ForgiveVaultStatusCheck drops the caller's own pending vault check.
func (c *Connector) ForgiveVaultStatusCheck(ctx context.Context, sender library.Address) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.forgiveVaultStatusCheck(sender)
	})
}

func (c *Connector) forgiveVaultStatusCheck(sender library.Address) error {
	if err := c.guard(false); err != nil {
		return err
	}
	c.checks.Remove(checks.Vaults, sender)
	return nil
}

func (c *Connector) IsAccountStatusCheckDeferred(ctx context.Context, account library.Address) (bool, error) {
	return c.isDeferred(ctx, checks.Accounts, account)
}

func (c *Connector) IsVaultStatusCheckDeferred(ctx context.Context, vault library.Address) (bool, error) {
	return c.isDeferred(ctx, checks.Vaults, vault)
}

func (c *Connector) isDeferred(ctx context.Context, t checks.SetType, member library.Address) (bool, error) {
	_, release := c.enter(ctx)
	defer release()
	if err := c.guard(false); err != nil {
		return false, err
	}
	return c.checks.Contains(t, member), nil
}

// checkNow runs a single check with checks marked in progress.
func (c *Connector) checkNow(ctx context.Context, t checks.SetType, member library.Address) error {
	saved := c.ec
	defer func() { c.ec = saved }()
	c.ec = saved.WithChecksInProgress()
	return c.check(ctx, t, member)
}

// checkStatusAll is the verification sweep that closes the outermost dispatch: every deferred
// account, then every deferred vault.
func (c *Connector) checkStatusAll(ctx context.Context) error {
	saved := c.ec
	defer func() { c.ec = saved }()
	c.ec = saved.WithChecksInProgress()
	for _, t := range []checks.SetType{checks.Accounts, checks.Vaults} {
		err := c.checks.DrainWithCallback(t, func(member library.Address) error {
			return c.check(ctx, t, member)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// checkStatusAllWithResult runs the same sweep as checkStatusAll but records every outcome instead
// of stopping at the first violation.
func (c *Connector) checkStatusAllWithResult(ctx context.Context) (accountResults, vaultResults []StatusCheckResult) {
	saved := c.ec
	defer func() { c.ec = saved }()
	c.ec = saved.WithChecksInProgress()
	collect := func(t checks.SetType) (results []StatusCheckResult) {
		_ = c.checks.DrainWithCallback(t, func(member library.Address) error {
			err := c.chain.Atomic(func() error {
				return c.check(ctx, t, member)
			})
			results = append(results, StatusCheckResult{CheckedAddress: member, IsValid: err == nil, Err: err})
			return nil
		})
		return
	}
	accountResults = collect(checks.Accounts)
	vaultResults = collect(checks.Vaults)
	return
}

// check runs one status check. Vaults answer under a read-only context.
func (c *Connector) check(ctx context.Context, t checks.SetType, member library.Address) error {
	ctx = chain.ReadOnly(ctx)
	if t == checks.Vaults {
		return c.checkVaultStatus(ctx, member)
	}
	return c.checkAccountStatus(ctx, member)
}

func (c *Connector) checkAccountStatus(ctx context.Context, account library.Address) error {
	controllers := c.accounts.Controllers(account)
	switch len(controllers) {
	case 0:
		return nil
	case 1:
	default:
		return library.Fail(library.ControllerViolation, "account %s has %d controllers enabled", account, len(controllers))
	}
	controller := controllers[0]
	c.journal.Emit(journal.KindAccountStatusCheck, nil, "account", account.Hex(), "controller", controller.Hex())
	vault, err := c.vault(controller)
	if err != nil {
		return library.Wrap(err, library.AccountStatusViolation, "account %s: %s", account, err)
	}
	magic, err := vault.CheckAccountStatus(ctx, account, c.accounts.Collaterals(account))
	if err != nil {
		library.LogCLI(fmt.Sprintf("account %s rejected by %s: %s", account, controller, err), 3)
		return library.Wrap(err, library.AccountStatusViolation, "account %s rejected by %s: %s", account, controller, err)
	}
	if magic != CheckAccountStatusMagic {
		return library.Fail(library.AccountStatusViolation, "account %s: %s returned %s", account, controller, magic.Hex())
	}
	return nil
}

func (c *Connector) checkVaultStatus(ctx context.Context, address library.Address) error {
	c.journal.Emit(journal.KindVaultStatusCheck, nil, "vault", address.Hex())
	vault, err := c.vault(address)
	if err != nil {
		return library.Wrap(err, library.VaultStatusViolation, "vault %s: %s", address, err)
	}
	magic, err := vault.CheckVaultStatus(ctx)
	if err != nil {
		library.LogCLI(fmt.Sprintf("vault %s rejected its own status: %s", address, err), 3)
		return library.Wrap(err, library.VaultStatusViolation, "vault %s rejected its status: %s", address, err)
	}
	if magic != CheckVaultStatusMagic {
		return library.Fail(library.VaultStatusViolation, "vault %s returned %s", address, magic.Hex())
	}
	return nil
}

func (c *Connector) vault(address library.Address) (Vault, error) {
	m, ok := c.chain.Module(address)
	if !ok {
		return nil, fmt.Errorf("no module is deployed at %s", address)
	}
	vault, ok := m.(Vault)
	if !ok {
		return nil, fmt.Errorf("module at %s does not implement status checks", address)
	}
	return vault, nil
}
