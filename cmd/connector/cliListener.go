package main

import (
	"context"
	"fmt"

	"github.com/eiannone/keyboard"
	"vaultconnector/engine/actors"
	"vaultconnector/engine/library"
)

// cliListener listens for keypresses and prints the part of the state that was asked for.
func cliListener(d *demo, interrupt chan struct{}) {
	fmt.Println("VIEW CURRENT STATE:\ni: owners and operators\na: collaterals and controllers\nn: nonces\nv: vault balances\nx: execution context\ne: connector events\nc: engine config\nq: to quit\nSee cliListener.go for more")
	ctx := context.Background()
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			panic(err)
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any command. See main.cliListener for more details.")
		case "q":
			close(interrupt)
			return
		case "i":
			m := d.connector.GetMap(ctx).Identity
			for prefix, owner := range m.Owners {
				fmt.Printf("\nPREFIX: %s OWNER: %s\n", prefix, owner)
				for operator, mask := range m.Operators[prefix] {
					fmt.Printf("  OPERATOR: %s MASK: %s\n", operator, mask.Hex())
				}
			}
		case "a":
			m := d.connector.GetMap(ctx).Accounts
			for account, collaterals := range m.Collaterals {
				fmt.Printf("\nACCOUNT: %s\nCOLLATERALS: %v\n", account, collaterals)
			}
			for account, controllers := range m.Controllers {
				fmt.Printf("\nACCOUNT: %s\nCONTROLLERS: %v\n", account, controllers)
			}
		case "n":
			for prefix, namespaces := range d.connector.GetMap(ctx).Replay {
				fmt.Printf("\nPREFIX: %s\n%v\n", prefix, namespaces)
			}
		case "v":
			fmt.Printf("\nBORROWER %s\nshares: %d debt: %d\n", d.borrower.Account, d.escrow.BalanceOf(d.borrower.Account), d.lending.DebtOf(d.borrower.Account))
			fmt.Printf("\nLIQUIDATOR %s\nshares: %d debt: %d\n", d.liquidator.Account, d.escrow.BalanceOf(d.liquidator.Account), d.lending.DebtOf(d.liquidator.Account))
			fmt.Printf("\nESCROW total shares: %d LENDING total borrows: %d\n", d.escrow.TotalShares(), d.lending.TotalBorrows())
		case "x":
			fmt.Printf("\n%#v\n", d.connector.GetExecutionContext(ctx))
		case "e":
			for _, e := range d.connector.Events(ctx) {
				op, _ := library.GetFirstTag(e, "op")
				tags := library.TagMap(e)
				delete(tags, "op")
				fmt.Printf("\n%s ID: %s\n%v\n", op, e.ID, tags)
			}
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range actors.MakeOrGetConfig().AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		}
	}
}
