package execution

import (
	"vaultconnector/engine/library"
)

// Context is the process-scoped dispatch state. Dispatchers copy it on entry and write the copy
// back on exit, so a failure at any depth leaves the outer value untouched.
type Context struct {
	CallDepth               int             `json:"call_depth"`
	ChecksDeferred          bool            `json:"checks_deferred"`
	ChecksInProgress        bool            `json:"checks_in_progress"`
	OnBehalfOfAccount       library.Address `json:"on_behalf_of_account"`
	ImpersonationInProgress bool            `json:"impersonation_in_progress"`
	OperatorAuthenticated   bool            `json:"operator_authenticated"`
	SimulationInProgress    bool            `json:"simulation_in_progress"`
}

// AtRest reports whether every field holds its initial value.
func (c Context) AtRest() bool {
	return c == Context{}
}

// IncreaseCallDepth enters a nested dispatch. Checks are deferred from the first level on.
func (c Context) IncreaseCallDepth(limit int) (Context, error) {
	if c.CallDepth >= limit {
		return c, library.Fail(library.CallDepthViolation, "call depth limit of %d reached", limit)
	}
	c.CallDepth++
	c.ChecksDeferred = true
	return c, nil
}

// WithChecksDeferred defers checks without entering a new call level.
func (c Context) WithChecksDeferred() Context {
	c.ChecksDeferred = true
	return c
}

func (c Context) WithOnBehalfOf(account library.Address, operator bool) Context {
	c.OnBehalfOfAccount = account
	c.OperatorAuthenticated = operator
	return c
}

func (c Context) WithImpersonation() Context {
	c.ImpersonationInProgress = true
	return c
}

func (c Context) WithSimulation() Context {
	c.SimulationInProgress = true
	return c
}

// WithChecksInProgress is the context the verification sweep runs under. No account is acting
// while checks run.
func (c Context) WithChecksInProgress() Context {
	c.ChecksInProgress = true
	c.OnBehalfOfAccount = library.ZeroAddress
	c.OperatorAuthenticated = false
	return c
}
