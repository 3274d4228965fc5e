// Package chain is the host the connector and the vaults live in. It routes invocations between
// modules by address, keeps native balances and gives every invocation frame all-or-nothing
// semantics by snapshotting revertible modules.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	"vaultconnector/engine/library"
)

// Message is what a module receives when it is invoked. Data is opaque to everyone but the
// receiving module.
type Message struct {
	Sender library.Address
	Value  uint64
	Data   []byte
}

type Module interface {
	Invoke(ctx context.Context, msg Message) ([]byte, error)
}

// Revertible is implemented by modules whose state must roll back with a failed frame.
type Revertible interface {
	Snapshot() any
	Revert(snapshot any)
}

type Chain struct {
	mutex    *deadlock.RWMutex
	modules  map[library.Address]Module
	order    []library.Address
	balances map[library.Address]uint64
	clock    func() time.Time
	// frames counts module frames currently running.
	frames int
}

func New() *Chain {
	return &Chain{
		mutex:    &deadlock.RWMutex{},
		modules:  make(map[library.Address]Module),
		balances: make(map[library.Address]uint64),
		clock:    time.Now,
	}
}

// Caller is the capability a module receives when it is registered. Only its holder can move the
// module's balance or invoke other modules with the module as the sender.
type Caller struct {
	chain   *Chain
	address library.Address
}

func (c *Caller) Address() library.Address {
	return c.address
}

// Invoke runs a frame with the module as the sender.
func (c *Caller) Invoke(ctx context.Context, target library.Address, value uint64, data []byte) ([]byte, error) {
	return c.chain.invoke(ctx, c.address, target, value, data)
}

// Transfer moves amount out of the module's own balance.
func (c *Caller) Transfer(to library.Address, amount uint64) error {
	return c.chain.transfer(c.address, to, amount)
}

type executingKey struct{}

// Executing returns the module whose Invoke ctx was handed to, if any. A read-only context reports
// the zero address.
func Executing(ctx context.Context) (library.Address, bool) {
	if ctx == nil {
		return library.ZeroAddress, false
	}
	addr, ok := ctx.Value(executingKey{}).(library.Address)
	return addr, ok
}

// ReadOnly derives a context under which code can no longer send as anyone.
func ReadOnly(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, executingKey{}, library.ZeroAddress)
}

// CanSendAs reports whether code running under ctx may act as sender. Outside of any module frame
// the caller is an external account and may name itself.
func CanSendAs(ctx context.Context, sender library.Address) bool {
	executing, ok := Executing(ctx)
	return !ok || (!executing.IsZero() && executing == sender)
}

// Register deploys m at addr and returns the capability to act as it.
func (c *Chain) Register(addr library.Address, m Module) (*Caller, error) {
	if addr.IsZero() {
		return nil, library.Fail(library.InvalidAddress, "cannot register a module at the zero address")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, exists := c.modules[addr]; exists {
		return nil, fmt.Errorf("a module is already registered at %s", addr)
	}
	c.modules[addr] = m
	c.order = append(c.order, addr)
	return &Caller{chain: c, address: addr}, nil
}

func (c *Chain) Module(addr library.Address) (Module, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	m, ok := c.modules[addr]
	return m, ok
}

func (c *Chain) SetClock(clock func() time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.clock = clock
}

func (c *Chain) Now() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.clock()
}

func (c *Chain) BalanceOf(addr library.Address) uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.balances[addr]
}

// Credit mints amount to addr.
func (c *Chain) Credit(addr library.Address, amount uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.balances[addr] += amount
}

func (c *Chain) transfer(from, to library.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.balances[from] < amount {
		return library.Fail(library.InvalidValue, "%s holds %d, cannot send %d", from, c.balances[from], amount)
	}
	c.balances[from] -= amount
	c.balances[to] += amount
	return nil
}

// Invoke runs one frame for an external account: value moves from sender to target and the target
// module handles data. Everything the frame changed is reverted if it fails. An address with no
// module accepts the value and returns nothing. Inside a module's frame the sender can only be
// that module.
func (c *Chain) Invoke(ctx context.Context, sender, target library.Address, value uint64, data []byte) ([]byte, error) {
	executing, inFrame := Executing(ctx)
	if !inFrame && c.running() {
		return nil, library.Fail(library.NotAuthorized, "a nested frame must pass on the context it was given")
	}
	if !CanSendAs(ctx, sender) {
		return nil, library.Fail(library.NotAuthorized, "module %s cannot send as %s", executing, sender)
	}
	return c.invoke(ctx, sender, target, value, data)
}

func (c *Chain) invoke(ctx context.Context, sender, target library.Address, value uint64, data []byte) (result []byte, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	err = c.Atomic(func() error {
		if err := c.transfer(sender, target, value); err != nil {
			return err
		}
		m, ok := c.Module(target)
		if !ok {
			return nil
		}
		c.enterFrame(1)
		defer c.enterFrame(-1)
		result, err = m.Invoke(context.WithValue(ctx, executingKey{}, target), Message{Sender: sender, Value: value, Data: data})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Chain) enterFrame(delta int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.frames += delta
}

func (c *Chain) running() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.frames > 0
}

// Atomic runs fn and reverts every revertible module and all balances if it fails or panics.
func (c *Chain) Atomic(fn func() error) (err error) {
	snapshot := c.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			c.Revert(snapshot)
			panic(r)
		}
		if err != nil {
			c.Revert(snapshot)
		}
	}()
	return fn()
}

type Snapshot struct {
	balances map[library.Address]uint64
	modules  map[library.Address]any
}

func (c *Chain) Snapshot() Snapshot {
	c.mutex.RLock()
	s := Snapshot{
		balances: make(map[library.Address]uint64, len(c.balances)),
		modules:  make(map[library.Address]any),
	}
	for addr, balance := range c.balances {
		s.balances[addr] = balance
	}
	var revertible []library.Address
	for _, addr := range c.order {
		if _, ok := c.modules[addr].(Revertible); ok {
			revertible = append(revertible, addr)
		}
	}
	c.mutex.RUnlock()
	for _, addr := range revertible {
		m, _ := c.Module(addr)
		s.modules[addr] = m.(Revertible).Snapshot()
	}
	return s
}

func (c *Chain) Revert(s Snapshot) {
	c.mutex.Lock()
	c.balances = make(map[library.Address]uint64, len(s.balances))
	for addr, balance := range s.balances {
		c.balances[addr] = balance
	}
	c.mutex.Unlock()
	for addr, snap := range s.modules {
		m, _ := c.Module(addr)
		m.(Revertible).Revert(snap)
	}
}
