// Package connector is the shared coordinator vaults use to recognise each other's deposits as
// collateral. It authenticates owners and operators, defers account and vault status checks while
// a dispatch is running and re-verifies everything it touched before the outermost dispatch
// returns.
//
// Exported methods that act for someone take the identity of their caller. Inside a module's frame
// that identity must be the module itself, only external accounts can name any sender. Modules
// invoked by the connector must hand the context they received back to the connector when they
// call it, that is how re-entry is told apart from a new top-level operation.
package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
	"vaultconnector/engine/actors"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/journal"
	"vaultconnector/messaging/permits"
	"vaultconnector/state/accounts"
	"vaultconnector/state/checks"
	"vaultconnector/state/execution"
	"vaultconnector/state/identity"
	"vaultconnector/state/replay"
)

type Config struct {
	Address      library.Address
	ChainID      uint64
	DomainName   string
	MaxCallDepth int
}

func DefaultConfig() Config {
	address, _ := library.ParseAddress(actors.DefaultConnectorAddress)
	return Config{
		Address:      address,
		ChainID:      1,
		DomainName:   "Vault Connector",
		MaxCallDepth: 10,
	}
}

// LoadConfig reads the connector settings installed by actors.SetDefaults.
func LoadConfig(conf *viper.Viper) (Config, error) {
	address, err := library.ParseAddress(conf.GetString("connectorAddress"))
	if err != nil {
		return Config{}, fmt.Errorf("connectorAddress: %w", err)
	}
	c := Config{
		Address:      address,
		ChainID:      conf.GetUint64("chainID"),
		DomainName:   strings.TrimSpace(conf.GetString("domainName")),
		MaxCallDepth: conf.GetInt("maxCallDepth"),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.Address.IsZero() {
		return fmt.Errorf("connector address is required")
	}
	if c.DomainName == "" {
		return fmt.Errorf("domain name is required")
	}
	if c.MaxCallDepth < 1 {
		return fmt.Errorf("max call depth must be positive, got %d", c.MaxCallDepth)
	}
	return nil
}

type Connector struct {
	address  library.Address
	config   Config
	chain    *chain.Chain
	self     *chain.Caller
	domain   permits.Domain
	mutex    *deadlock.Mutex
	ec       execution.Context
	identity *identity.Db
	replay   *replay.Db
	accounts *accounts.Db
	checks   *checks.Db
	journal  *journal.Journal
}

// New deploys a connector on host at config.Address.
func New(host *chain.Chain, config Config) (*Connector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Connector{
		address:  config.Address,
		config:   config,
		chain:    host,
		domain:   permits.Domain{Name: config.DomainName, ChainID: config.ChainID, Verifier: config.Address},
		mutex:    &deadlock.Mutex{},
		identity: identity.NewDb(),
		replay:   replay.NewDb(),
		accounts: accounts.NewDb(),
		checks:   checks.NewDb(),
		journal:  journal.New(config.Address, host.Now),
	}
	self, err := host.Register(config.Address, c)
	if err != nil {
		return nil, err
	}
	c.self = self
	library.LogCLI(fmt.Sprintf("Connector deployed at %s", c.address), 4)
	return c, nil
}

func (c *Connector) Address() library.Address {
	return c.address
}

func (c *Connector) Chain() *chain.Chain {
	return c.chain
}

func (c *Connector) Domain() permits.Domain {
	return c.domain
}

type sessionKey struct{}

// enter serializes top-level operations. A context that already carries this connector's session
// belongs to a nested call and passes straight through.
func (c *Connector) enter(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s, ok := ctx.Value(sessionKey{}).(*Connector); ok && s == c {
		return ctx, func() {}
	}
	c.mutex.Lock()
	return context.WithValue(ctx, sessionKey{}, c), c.mutex.Unlock
}

// frame runs fn as one all-or-nothing unit on the host.
func (c *Connector) frame(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, release := c.enter(ctx)
	defer release()
	return c.chain.Atomic(func() error {
		return fn(ctx)
	})
}

// frameAs is frame for entry points that act as sender. A module can only act as itself.
func (c *Connector) frameAs(ctx context.Context, sender library.Address, fn func(ctx context.Context) error) error {
	return c.frame(ctx, func(ctx context.Context) error {
		if err := c.guard(false); err != nil {
			return err
		}
		if !chain.CanSendAs(ctx, sender) {
			executing, _ := chain.Executing(ctx)
			return library.Fail(library.NotAuthorized, "%s cannot act as %s", executing, sender)
		}
		return fn(ctx)
	})
}

// guard rejects entry while checks run and, for entry points that mutate what a liquidation
// relies on, while an impersonation is in progress.
func (c *Connector) guard(impersonation bool) error {
	if c.ec.ChecksInProgress {
		return library.Fail(library.ChecksReentrancy, "status checks are in progress")
	}
	if impersonation && c.ec.ImpersonationInProgress {
		return library.Fail(library.ImpersonateReentrancy, "impersonation is in progress")
	}
	return nil
}

// Invoke handles instructions other modules send to the connector's address. The sender is the
// authenticated caller.
func (c *Connector) Invoke(ctx context.Context, msg chain.Message) ([]byte, error) {
	ctx, release := c.enter(ctx)
	defer release()
	return c.dispatchSelf(ctx, msg.Sender, msg.Data, false)
}

type snapshot struct {
	identity any
	replay   any
	accounts any
	checks   any
	journal  any
}

func (c *Connector) Snapshot() any {
	return snapshot{
		identity: c.identity.Snapshot(),
		replay:   c.replay.Snapshot(),
		accounts: c.accounts.Snapshot(),
		checks:   c.checks.Snapshot(),
		journal:  c.journal.Snapshot(),
	}
}

func (c *Connector) Revert(v any) {
	s := v.(snapshot)
	c.identity.Revert(s.identity)
	c.replay.Revert(s.replay)
	c.accounts.Revert(s.accounts)
	c.checks.Revert(s.checks)
	c.journal.Revert(s.journal)
}

var _ chain.Module = (*Connector)(nil)
var _ chain.Revertible = (*Connector)(nil)
