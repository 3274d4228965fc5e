package connector

import (
	"context"
	"fmt"
	"strconv"

	"vaultconnector/engine/chain"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
	"vaultconnector/messaging/journal"
	"vaultconnector/messaging/permits"
)

type Permit = instructions.PermitArgs

// Permit executes data on behalf of a signer who is not the caller. Anyone can relay a permit
// unless the signer bound it to a specific sender. The signed value only gates the connector's
// balance: the permit fails unless the connector holds it, and nothing is transferred until the
// wrapped instruction forwards its own value.
func (c *Connector) Permit(ctx context.Context, sender library.Address, p Permit) error {
	return c.frameAs(ctx, sender, func(ctx context.Context) error {
		return c.permit(ctx, sender, p)
	})
}

func (c *Connector) permit(ctx context.Context, sender library.Address, p Permit) error {
	if err := c.guard(true); err != nil {
		return err
	}
	if p.Signer.IsZero() || p.Signer == c.address {
		return library.Fail(library.InvalidAddress, "%s cannot sign permits", p.Signer)
	}
	if !p.Sender.IsZero() && p.Sender != sender {
		return library.Fail(library.NotAuthorized, "permit may only be relayed by %s", p.Sender)
	}
	if now := c.chain.Now().Unix(); now > p.Deadline {
		return library.Fail(library.InvalidTimestamp, "permit expired at %d, now %d", p.Deadline, now)
	}
	prefix := p.Signer.Prefix()
	if err := c.replay.Valid(prefix, p.Namespace, p.Nonce); err != nil {
		return err
	}
	if len(p.Data) == 0 {
		return library.Fail(library.InvalidData, "permit carries no instruction")
	}
	digest := c.domain.Digest(permits.Permit{
		Signer:    p.Signer,
		Sender:    p.Sender,
		Namespace: p.Namespace,
		Nonce:     p.Nonce,
		Deadline:  p.Deadline,
		Value:     p.Value,
		Data:      p.Data,
	})
	if err := c.verifySignature(ctx, p.Signer, digest, p.Signature); err != nil {
		return err
	}
	if err := c.replay.Consume(prefix, p.Namespace, p.Nonce); err != nil {
		return err
	}
	c.journal.Emit(journal.KindNonceUsed, nil, "prefix", prefix.Hex(),
		"namespace", strconv.FormatUint(p.Namespace, 10), "nonce", strconv.FormatUint(p.Nonce, 10))
	if _, err := c.resolveValue(p.Value); err != nil {
		return err
	}
	return c.nest(ctx, func() error {
		saved := c.ec
		defer func() { c.ec = saved }()
		c.ec = c.ec.WithOnBehalfOf(p.Signer, false)
		_, err := c.dispatchSelf(ctx, p.Signer, p.Data, true)
		return err
	})
}

// verifySignature accepts a plain secp256k1 signature by signer or, for a module signer, whatever
// its SignatureValidator accepts.
func (c *Connector) verifySignature(ctx context.Context, signer library.Address, digest [32]byte, signature []byte) error {
	recovered, recoverErr := permits.Recover(digest, signature)
	if recoverErr == nil && recovered == signer {
		return nil
	}
	m, ok := c.chain.Module(signer)
	if ok {
		if validator, ok := m.(SignatureValidator); ok {
			magic, err := validator.IsValidSignature(chain.ReadOnly(ctx), digest, signature)
			if err == nil && magic == IsValidSignatureMagic {
				return nil
			}
			library.LogCLI(fmt.Sprintf("signature validator %s rejected a permit", signer), 4)
			return library.Fail(library.NotAuthorized, "%s did not accept the permit signature", signer)
		}
	}
	if recoverErr != nil {
		return recoverErr
	}
	return library.Fail(library.NotAuthorized, "permit was signed by %s, not %s", recovered, signer)
}
