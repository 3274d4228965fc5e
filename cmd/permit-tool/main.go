package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"vaultconnector/engine/actors"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
	"vaultconnector/messaging/instructions"
	"vaultconnector/messaging/permits"
)

func main() {
	conf := viper.New()
	actors.InitConfig(conf)
	actors.SetConfig(conf)
	if err := rootCommand(conf).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand(conf *viper.Viper) *cobra.Command {
	var walletName string
	rootCmd := &cobra.Command{
		Use:   "permit-tool",
		Short: "sign delegated instructions for a vault connector",
	}
	rootCmd.PersistentFlags().StringVarP(&walletName, "wallet", "w", "signer", "name of the wallet file in the root directory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "wallet",
		Short: "print the signer address, creating the wallet if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := actors.LoadOrCreateWallet(walletName)
			if err != nil {
				return err
			}
			fmt.Println(w.Account)
			return nil
		},
	})

	var (
		sender    string
		namespace uint64
		nonce     uint64
		ttl       time.Duration
		value     uint64
		op        string
		opArgs    string
	)
	sign := &cobra.Command{
		Use:   "sign",
		Short: "sign a permit wrapping one connector instruction and print it as a permit instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := actors.LoadOrCreateWallet(walletName)
			if err != nil {
				return err
			}
			key, err := actors.PrivateKey(w)
			if err != nil {
				return err
			}
			config, err := connector.LoadConfig(conf)
			if err != nil {
				return err
			}
			data, err := instructions.Encode(op, json.RawMessage(opArgs))
			if err != nil {
				return err
			}
			p := instructions.PermitArgs{
				Signer:    w.Account,
				Namespace: namespace,
				Nonce:     nonce,
				Deadline:  time.Now().Add(ttl).Unix(),
				Value:     value,
				Data:      data,
			}
			if sender != "" {
				if p.Sender, err = library.ParseAddress(sender); err != nil {
					return err
				}
			}
			domain := permits.Domain{Name: config.DomainName, ChainID: config.ChainID, Verifier: config.Address}
			digest := domain.Digest(permits.Permit{
				Signer:    p.Signer,
				Sender:    p.Sender,
				Namespace: p.Namespace,
				Nonce:     p.Nonce,
				Deadline:  p.Deadline,
				Value:     p.Value,
				Data:      p.Data,
			})
			if p.Signature, err = permits.Sign(key, digest); err != nil {
				return err
			}
			out, err := instructions.Encode(instructions.OpPermit, p)
			if err != nil {
				return err
			}
			library.LogCLI(fmt.Sprintf("digest 0x%s", hex.EncodeToString(digest[:])), 3)
			fmt.Println(string(out))
			return nil
		},
	}
	sign.Flags().StringVarP(&sender, "sender", "s", "", "only this address may relay the permit")
	sign.Flags().Uint64VarP(&namespace, "namespace", "n", 0, "nonce namespace")
	sign.Flags().Uint64Var(&nonce, "nonce", 1, "nonce, one above the stored nonce of the namespace")
	sign.Flags().DurationVarP(&ttl, "ttl", "t", time.Hour, "how long the permit stays valid")
	sign.Flags().Uint64VarP(&value, "value", "v", 0, "value forwarded by the connector")
	sign.Flags().StringVarP(&op, "op", "o", "", "connector instruction to wrap, e.g. enableCollateral")
	sign.Flags().StringVarP(&opArgs, "args", "a", "{}", "JSON arguments of the instruction")
	_ = sign.MarkFlagRequired("op")
	rootCmd.AddCommand(sign)

	recoverCmd := &cobra.Command{
		Use:   "recover <digest> <signature>",
		Short: "print the address that produced a signature over a digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			digestBytes, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
			if err != nil {
				return err
			}
			if len(digestBytes) != 32 {
				return fmt.Errorf("digest must be 32 bytes, got %d", len(digestBytes))
			}
			signature, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
			if err != nil {
				return err
			}
			var digest [32]byte
			copy(digest[:], digestBytes)
			signer, err := permits.Recover(digest, signature)
			if err != nil {
				return err
			}
			fmt.Println(signer)
			return nil
		},
	}
	rootCmd.AddCommand(recoverCmd)
	return rootCmd
}
