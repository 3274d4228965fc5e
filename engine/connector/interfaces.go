package connector

import (
	"context"

	"vaultconnector/engine/library"
)

var (
	// CheckAccountStatusMagic is what a controller returns when the account is healthy.
	CheckAccountStatusMagic = library.MagicOf("checkAccountStatus(address,address[])")
	// CheckVaultStatusMagic is what a vault returns when its own state is acceptable.
	CheckVaultStatusMagic = library.MagicOf("checkVaultStatus()")
	// IsValidSignatureMagic is what a SignatureValidator returns for a signature it accepts.
	IsValidSignatureMagic = library.MagicOf("isValidSignature(bytes32,bytes)")
)

// Vault is implemented by modules that can be enabled as collateral or controller. Status checks
// are invoked with the connector's session context.
type Vault interface {
	CheckAccountStatus(ctx context.Context, account library.Address, collaterals []library.Address) (library.Magic, error)
	CheckVaultStatus(ctx context.Context) (library.Magic, error)
}

// SignatureValidator lets a module that is not a key pair sign permits.
type SignatureValidator interface {
	IsValidSignature(ctx context.Context, hash [32]byte, signature []byte) (library.Magic, error)
}
