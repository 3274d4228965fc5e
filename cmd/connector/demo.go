package main

import (
	"context"
	"fmt"

	"vaultconnector/engine/actors"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
	"vaultconnector/libraries/vaults"
	"vaultconnector/messaging/instructions"
)

type demo struct {
	connector  *connector.Connector
	escrow     *vaults.Escrow
	lending    *vaults.Lending
	borrower   library.Wallet
	liquidator library.Wallet
}

func deploy(c *connector.Connector) (*demo, error) {
	escrowAddr, err := library.ParseAddress(escrowAddress)
	if err != nil {
		return nil, err
	}
	lendingAddr, err := library.ParseAddress(lendingAddress)
	if err != nil {
		return nil, err
	}
	escrow, err := vaults.NewEscrow(c, escrowAddr, "escrow", 0)
	if err != nil {
		return nil, err
	}
	lending, err := vaults.NewLending(c, lendingAddr, "lending", 0, 500)
	if err != nil {
		return nil, err
	}
	lending.SetCollateral(escrowAddr, vaults.CollateralConfig{LTV: 8000, Price: vaults.PriceScale})
	borrower, err := actors.LoadOrCreateWallet("borrower")
	if err != nil {
		return nil, err
	}
	liquidator, err := actors.LoadOrCreateWallet("liquidator")
	if err != nil {
		return nil, err
	}
	return &demo{connector: c, escrow: escrow, lending: lending, borrower: borrower, liquidator: liquidator}, nil
}

// run walks through a deposit, a borrow and a liquidation after the collateral price drops.
func (d *demo) run(ctx context.Context) error {
	host := d.connector.Chain()
	host.Credit(d.borrower.Account, 1_000)
	host.Credit(d.liquidator.Account, 1_000)
	host.Credit(d.lending.Address(), 10_000)

	for _, w := range []library.Wallet{d.borrower, d.liquidator} {
		deposit := instructions.MustEncode(vaults.OpDeposit, vaults.DepositArgs{Receiver: w.Account})
		if _, err := host.Invoke(ctx, w.Account, d.escrow.Address(), 1_000, deposit); err != nil {
			return err
		}
	}
	library.LogCLI("Borrower and liquidator deposited 1000 each", 4)

	connectorAddr := d.connector.Address()
	borrow := []connector.BatchItem{
		{Target: connectorAddr, Data: instructions.MustEncode(instructions.OpEnableCollateral, instructions.VaultArgs{Account: d.borrower.Account, Vault: d.escrow.Address()})},
		{Target: connectorAddr, Data: instructions.MustEncode(instructions.OpEnableController, instructions.VaultArgs{Account: d.borrower.Account, Vault: d.lending.Address()})},
		{Target: d.lending.Address(), OnBehalfOf: d.borrower.Account, Data: instructions.MustEncode(vaults.OpBorrow, vaults.BorrowArgs{Amount: 700, Receiver: d.borrower.Account})},
	}
	simulation, err := d.connector.BatchSimulation(ctx, d.borrower.Account, borrow)
	if err != nil {
		return err
	}
	for i, item := range simulation.Items {
		library.LogCLI(fmt.Sprintf("simulated item %d: success=%t", i, item.Success), 4)
	}
	if err := d.connector.Batch(ctx, d.borrower.Account, borrow); err != nil {
		return err
	}
	library.LogCLI(fmt.Sprintf("Borrower owes %d", d.lending.DebtOf(d.borrower.Account)), 4)

	d.lending.SetCollateral(d.escrow.Address(), vaults.CollateralConfig{LTV: 8000, Price: vaults.PriceScale * 8 / 10})
	library.LogCLI("Collateral price dropped by 20%", 4)

	liquidate := []connector.BatchItem{
		{Target: connectorAddr, Data: instructions.MustEncode(instructions.OpEnableCollateral, instructions.VaultArgs{Account: d.liquidator.Account, Vault: d.escrow.Address()})},
		{Target: connectorAddr, Data: instructions.MustEncode(instructions.OpEnableController, instructions.VaultArgs{Account: d.liquidator.Account, Vault: d.lending.Address()})},
		{Target: d.lending.Address(), OnBehalfOf: d.liquidator.Account, Data: instructions.MustEncode(vaults.OpLiquidate, vaults.LiquidateArgs{Violator: d.borrower.Account, Collateral: d.escrow.Address(), Repay: 200})},
	}
	if err := d.connector.Batch(ctx, d.liquidator.Account, liquidate); err != nil {
		return err
	}
	library.LogCLI(fmt.Sprintf("Liquidated: borrower owes %d and holds %d shares, liquidator owes %d and holds %d shares",
		d.lending.DebtOf(d.borrower.Account), d.escrow.BalanceOf(d.borrower.Account),
		d.lending.DebtOf(d.liquidator.Account), d.escrow.BalanceOf(d.liquidator.Account)), 4)
	return nil
}
