package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
)

func TestBatchSimulationCommitsNothing(t *testing.T) {
	f := newFixture(t)
	v := f.vault(1)
	f.chain.Credit(f.c.Address(), 10)

	result, err := f.c.BatchSimulation(f.ctx, alice, []BatchItem{
		selfItem(f.c, instructions.OpEnableController, instructions.VaultArgs{Account: alice, Vault: v.address}),
		{Target: v.address, OnBehalfOf: alice, Value: 10, Data: []byte("out")},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[0].Success)
	assert.True(t, result.Items[1].Success)
	assert.Equal(t, []byte("out"), result.Items[1].Result)
	require.Len(t, result.AccountChecks, 1)
	assert.Equal(t, StatusCheckResult{CheckedAddress: alice, IsValid: true}, result.AccountChecks[0])
	require.Len(t, result.VaultChecks, 1)
	assert.True(t, result.VaultChecks[0].IsValid)

	assert.False(t, f.c.IsControllerEnabled(f.ctx, alice, v.address))
	assert.True(t, f.c.GetAccountOwner(f.ctx, alice).IsZero())
	assert.Zero(t, v.counter)
	assert.Equal(t, uint64(10), f.chain.BalanceOf(f.c.Address()))
	assert.Empty(t, f.c.Events(f.ctx))
	assert.True(t, f.c.GetExecutionContext(f.ctx).AtRest())
}

func TestBatchSimulationReportsFailures(t *testing.T) {
	f := newFixture(t)
	v := f.vault(1)
	v.rejectVault = true
	v.reject[alice] = true

	result, err := f.c.BatchSimulation(f.ctx, alice, []BatchItem{
		selfItem(f.c, instructions.OpEnableController, instructions.VaultArgs{Account: alice, Vault: v.address}),
		{Target: v.address, OnBehalfOf: bob},
		{Target: v.address, OnBehalfOf: alice},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.True(t, result.Items[0].Success)
	assert.False(t, result.Items[1].Success)
	assertCode(t, result.Items[1].Err, library.NotAuthorized)
	assert.True(t, result.Items[2].Success, "items are not checked one by one")

	require.Len(t, result.AccountChecks, 1)
	assert.False(t, result.AccountChecks[0].IsValid)
	assertCode(t, result.AccountChecks[0].Err, library.AccountStatusViolation)
	require.Len(t, result.VaultChecks, 1)
	assert.Equal(t, v.address, result.VaultChecks[0].CheckedAddress)
	assert.False(t, result.VaultChecks[0].IsValid)
	assert.Zero(t, v.counter)
}

func TestBatchRevertAlwaysFails(t *testing.T) {
	f := newFixture(t)
	v := f.vault(1)
	err := f.c.BatchRevert(f.ctx, alice, []BatchItem{
		selfItem(f.c, instructions.OpEnableCollateral, instructions.VaultArgs{Account: alice, Vault: v.address}),
	})
	var reverted *RevertedBatchResult
	require.True(t, errors.As(err, &reverted))
	assert.Len(t, reverted.Items, 1)
	assert.Contains(t, reverted.Error(), "0 of 1 items failed")
	assert.False(t, f.c.IsCollateralEnabled(f.ctx, alice, v.address))

	result, err := f.c.BatchSimulation(f.ctx, alice, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestSimulationContext(t *testing.T) {
	f := newFixture(t)
	v := f.vault(1)
	var simulating bool
	v.invoke = func(ctx context.Context, msg chain.Message) ([]byte, error) {
		simulating = v.c.IsSimulationInProgress(ctx)
		return nil, nil
	}
	_, err := f.c.BatchSimulation(f.ctx, alice, []BatchItem{{Target: v.address, OnBehalfOf: alice}})
	require.NoError(t, err)
	assert.True(t, simulating)
	assert.False(t, f.c.IsSimulationInProgress(f.ctx))
}

func TestSimulationCannotNest(t *testing.T) {
	f := newFixture(t)
	v := f.vault(1)
	v.invoke = func(ctx context.Context, msg chain.Message) ([]byte, error) {
		_, err := v.c.BatchSimulation(ctx, v.address, nil)
		return nil, err
	}
	_, err := f.c.Call(f.ctx, alice, v.address, alice, 0, nil)
	assertCode(t, err, library.SimulationBatchNested)
}
