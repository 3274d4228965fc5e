package actors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/nbd-wtf/go-nostr/nip06"
	"vaultconnector/engine/library"
)

// NewWallet generates a signer key from fresh seed words.
func NewWallet() (library.Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return library.Wallet{}, err
	}
	return WalletFromSeedWords(seedWords)
}

func WalletFromSeedWords(seedWords string) (library.Wallet, error) {
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return library.Wallet{}, err
	}
	w, err := WalletFromPrivateKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	w.SeedWords = seedWords
	return w, nil
}

func WalletFromPrivateKey(privateKey string) (library.Wallet, error) {
	key, err := PrivateKey(library.Wallet{PrivateKey: privateKey})
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{
		PrivateKey: privateKey,
		Account:    library.AddressFromPubKey(key.PubKey()),
	}, nil
}

func PrivateKey(w library.Wallet) (*btcec.PrivateKey, error) {
	keyb, err := hex.DecodeString(w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error decoding key from hex: %s", err.Error())
	}
	key, _ := btcec.PrivKeyFromBytes(keyb)
	return key, nil
}

// LoadOrCreateWallet restores the wallet stored under name in the root directory, creating and
// persisting a new one if there is none.
func LoadOrCreateWallet(name string) (library.Wallet, error) {
	path := MakeOrGetConfig().GetString("rootDir") + name + ".wallet"
	if file, err := os.ReadFile(path); err == nil {
		var w library.Wallet
		if err = json.Unmarshal(file, &w); err == nil {
			return w, nil
		}
		library.LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 2)
	}
	w, err := NewWallet()
	if err != nil {
		return w, err
	}
	b, err := json.Marshal(w)
	if err != nil {
		return w, err
	}
	initRootDir(MakeOrGetConfig())
	return w, os.WriteFile(path, b, 0600)
}
