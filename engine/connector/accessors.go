package connector

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	"vaultconnector/engine/library"
	"vaultconnector/state/execution"
)

func (c *Connector) GetExecutionContext(ctx context.Context) execution.Context {
	_, release := c.enter(ctx)
	defer release()
	return c.ec
}

func (c *Connector) GetCurrentCallDepth(ctx context.Context) int {
	return c.GetExecutionContext(ctx).CallDepth
}

func (c *Connector) AreChecksDeferred(ctx context.Context) bool {
	return c.GetExecutionContext(ctx).ChecksDeferred
}

func (c *Connector) AreChecksInProgress(ctx context.Context) bool {
	return c.GetExecutionContext(ctx).ChecksInProgress
}

func (c *Connector) IsImpersonationInProgress(ctx context.Context) bool {
	return c.GetExecutionContext(ctx).ImpersonationInProgress
}

func (c *Connector) IsOperatorAuthenticated(ctx context.Context) bool {
	return c.GetExecutionContext(ctx).OperatorAuthenticated
}

func (c *Connector) IsSimulationInProgress(ctx context.Context) bool {
	return c.GetExecutionContext(ctx).SimulationInProgress
}

// GetCurrentOnBehalfOfAccount returns the account the current dispatch acts for and whether
// controllerToCheck is one of its enabled controllers. Vaults call it to learn who they are
// serving.
func (c *Connector) GetCurrentOnBehalfOfAccount(ctx context.Context, controllerToCheck library.Address) (library.Address, bool, error) {
	_, release := c.enter(ctx)
	defer release()
	account := c.ec.OnBehalfOfAccount
	if account.IsZero() {
		return library.ZeroAddress, false, library.Fail(library.OnBehalfOfAccountNotAuthenticated, "no account is acting")
	}
	enabled := !controllerToCheck.IsZero() && c.accounts.IsControllerEnabled(account, controllerToCheck)
	return account, enabled, nil
}

// Events returns every event the connector has emitted and kept.
func (c *Connector) Events(ctx context.Context) []nostr.Event {
	_, release := c.enter(ctx)
	defer release()
	return c.journal.Events()
}

func (c *Connector) EventsOfKind(ctx context.Context, kind int) []nostr.Event {
	_, release := c.enter(ctx)
	defer release()
	return c.journal.Filter(kind)
}
