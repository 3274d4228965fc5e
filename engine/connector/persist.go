package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"vaultconnector/engine/actors"
	"vaultconnector/engine/library"
	"vaultconnector/state/accounts"
	"vaultconnector/state/identity"
	"vaultconnector/state/replay"
)

// Mapped is everything the connector keeps between top-level operations. Deferred checks and the
// execution context are empty at rest and are not part of it.
type Mapped struct {
	Identity identity.Mapped `json:"identity"`
	Replay   replay.Mapped   `json:"replay"`
	Accounts accounts.Mapped `json:"accounts"`
}

func (c *Connector) GetMap(ctx context.Context) Mapped {
	_, release := c.enter(ctx)
	defer release()
	return Mapped{
		Identity: c.identity.GetMap(),
		Replay:   c.replay.GetMap(),
		Accounts: c.accounts.GetMap(),
	}
}

// RestoreMap replaces the persistent state. It is only allowed at rest.
func (c *Connector) RestoreMap(ctx context.Context, m Mapped) error {
	_, release := c.enter(ctx)
	defer release()
	if !c.ec.AtRest() || !c.checks.IsEmpty() {
		return fmt.Errorf("connector state can only be restored at rest")
	}
	c.identity.Restore(m.Identity)
	c.replay.Restore(m.Replay)
	c.accounts.Restore(m.Accounts)
	return nil
}

func (c *Connector) persistToDisk(ctx context.Context) error {
	b, err := json.MarshalIndent(c.GetMap(ctx), "", " ")
	if err != nil {
		return err
	}
	return actors.Write("connector", "current", b)
}

func (c *Connector) restoreFromDisk(ctx context.Context, f io.ReadCloser) error {
	defer f.Close()
	var m Mapped
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return c.RestoreMap(ctx, m)
}

// Start loads the connector state from the flat file store and writes it back when the process
// terminates. It returns once the state is loaded.
func (c *Connector) Start(ctx context.Context) error {
	if f, ok := actors.Open("connector", "current"); ok {
		if err := c.restoreFromDisk(ctx, f); err != nil {
			return err
		}
		library.LogCLI("Connector state restored from disk", 4)
	}
	actors.GetWaitGroup().Add(1)
	go func() {
		defer actors.GetWaitGroup().Done()
		<-actors.GetTerminateChan()
		if err := c.persistToDisk(context.Background()); err != nil {
			library.LogCLI(err.Error(), 1)
			return
		}
		library.LogCLI("Connector state persisted to disk", 4)
	}()
	return nil
}
