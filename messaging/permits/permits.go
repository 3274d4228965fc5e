// Package permits hashes delegated instructions as domain-scoped structured data and recovers
// their secp256k1 signers.
package permits

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"vaultconnector/engine/library"
)

// SignatureLength is r || s || v.
const SignatureLength = 65

var (
	domainTypeHash = library.Keccak256([]byte("EIP712Domain(string name,uint256 chainId,address verifyingContract)"))
	permitTypeHash = library.Keccak256([]byte("Permit(address signer,address sender,uint256 nonceNamespace,uint256 nonce,uint256 deadline,uint256 value,bytes data)"))
)

// Domain scopes signatures to one connector on one chain.
type Domain struct {
	Name     string
	ChainID  uint64
	Verifier library.Address
}

type Permit struct {
	Signer    library.Address
	Sender    library.Address
	Namespace uint64
	Nonce     uint64
	Deadline  int64
	Value     uint64
	Data      []byte
}

func (d Domain) Separator() [32]byte {
	name := library.Keccak256([]byte(d.Name))
	chainID := word(d.ChainID)
	verifier := addressWord(d.Verifier)
	return library.Keccak256(domainTypeHash[:], name[:], chainID[:], verifier[:])
}

// Digest is the hash a signer signs for p.
func (d Domain) Digest(p Permit) [32]byte {
	signer := addressWord(p.Signer)
	sender := addressWord(p.Sender)
	namespace := word(p.Namespace)
	nonce := word(p.Nonce)
	deadline := word(uint64(p.Deadline))
	value := word(p.Value)
	data := library.Keccak256(p.Data)
	structHash := library.Keccak256(permitTypeHash[:], signer[:], sender[:], namespace[:], nonce[:], deadline[:], value[:], data[:])
	separator := d.Separator()
	return library.Keccak256([]byte{0x19, 0x01}, separator[:], structHash[:])
}

// Sign produces an r || s || v signature over digest.
func Sign(key *btcec.PrivateKey, digest [32]byte) ([]byte, error) {
	compact, err := ecdsa.SignCompact(key, digest[:], false)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// Recover returns the address whose key produced signature over digest. Malformed or malleable
// signatures are InvalidSignature.
func Recover(digest [32]byte, signature []byte) (library.Address, error) {
	if len(signature) != SignatureLength {
		return library.ZeroAddress, library.Fail(library.InvalidSignature, "signature must be %d bytes, got %d", SignatureLength, len(signature))
	}
	v := signature[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return library.ZeroAddress, library.Fail(library.InvalidSignature, "invalid recovery id %d", signature[64])
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(signature[32:64]); overflow || s.IsOverHalfOrder() {
		return library.ZeroAddress, library.Fail(library.InvalidSignature, "signature s value is not canonical")
	}
	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], signature[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return library.ZeroAddress, library.Wrap(err, library.InvalidSignature, "cannot recover signer")
	}
	return library.AddressFromPubKey(pub), nil
}

func word(v uint64) (w [32]byte) {
	binary.BigEndian.PutUint64(w[24:], v)
	return
}

func addressWord(a library.Address) (w [32]byte) {
	copy(w[12:], a[:])
	return
}
