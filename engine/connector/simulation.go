package connector

import (
	"context"
	"errors"
	"fmt"

	"vaultconnector/engine/library"
)

// BatchItemResult is the outcome of one item of a simulated batch.
type BatchItemResult struct {
	Success bool   `json:"success"`
	Result  []byte `json:"result"`
	Err     error  `json:"-"`
}

type SimulationResult struct {
	Items         []BatchItemResult   `json:"items"`
	AccountChecks []StatusCheckResult `json:"account_checks"`
	VaultChecks   []StatusCheckResult `json:"vault_checks"`
}

// RevertedBatchResult is the error BatchRevert always fails with. Failing is what makes the host
// throw away every effect of the simulated batch.
type RevertedBatchResult struct {
	SimulationResult
}

func (r *RevertedBatchResult) Error() string {
	failed := 0
	for _, item := range r.Items {
		if !item.Success {
			failed++
		}
	}
	invalid := 0
	for _, check := range append(append([]StatusCheckResult{}, r.AccountChecks...), r.VaultChecks...) {
		if !check.IsValid {
			invalid++
		}
	}
	return fmt.Sprintf("batch reverted: %d of %d items failed, %d status checks invalid", failed, len(r.Items), invalid)
}

// BatchRevert runs items and the verification sweep, records every outcome and reverts all of it.
// It cannot be nested inside another dispatch.
func (c *Connector) BatchRevert(ctx context.Context, sender library.Address, items []BatchItem) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.batchRevert(ctx, sender, items)
	})
}

func (c *Connector) batchRevert(ctx context.Context, sender library.Address, items []BatchItem) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if c.ec.ChecksDeferred {
		return library.Fail(library.SimulationBatchNested, "simulations cannot run inside a dispatch")
	}
	saved := c.ec
	next, err := saved.IncreaseCallDepth(c.config.MaxCallDepth)
	if err != nil {
		return err
	}
	result := &RevertedBatchResult{}
	func() {
		defer func() { c.ec = saved }()
		c.ec = next.WithSimulation()
		for _, item := range items {
			var out []byte
			err := c.chain.Atomic(func() (err error) {
				out, err = c.batchItem(ctx, sender, item)
				return err
			})
			result.Items = append(result.Items, BatchItemResult{Success: err == nil, Result: out, Err: err})
		}
	}()
	result.AccountChecks, result.VaultChecks = c.checkStatusAllWithResult(ctx)
	library.LogCLI(result.Error(), 4)
	return result
}

// BatchSimulation reports what items would do without committing anything.
func (c *Connector) BatchSimulation(ctx context.Context, sender library.Address, items []BatchItem) (SimulationResult, error) {
	err := c.BatchRevert(ctx, sender, items)
	var reverted *RevertedBatchResult
	if errors.As(err, &reverted) {
		return reverted.SimulationResult, nil
	}
	if err == nil {
		return SimulationResult{}, fmt.Errorf("simulation unexpectedly committed")
	}
	return SimulationResult{}, err
}
