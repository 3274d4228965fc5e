// Package instructions encodes the payloads addressed to the connector itself: batch items that
// target the connector, permit payloads and messages other modules send to the connector's
// address.
package instructions

import (
	"encoding/json"

	"vaultconnector/engine/library"
)

const (
	OpCall                              = "call"
	OpImpersonate                       = "impersonate"
	OpBatch                             = "batch"
	OpCallback                          = "callback"
	OpPermit                            = "permit"
	OpEnableCollateral                  = "enableCollateral"
	OpDisableCollateral                 = "disableCollateral"
	OpReorderCollaterals                = "reorderCollaterals"
	OpEnableController                  = "enableController"
	OpDisableController                 = "disableController"
	OpSetNonce                          = "setNonce"
	OpSetOperator                       = "setOperator"
	OpSetAccountOperator                = "setAccountOperator"
	OpRequireAccountStatusCheck         = "requireAccountStatusCheck"
	OpRequireAccountStatusCheckNow      = "requireAccountStatusCheckNow"
	OpRequireAllAccountsStatusCheckNow  = "requireAllAccountsStatusCheckNow"
	OpRequireVaultStatusCheck           = "requireVaultStatusCheck"
	OpRequireVaultStatusCheckNow        = "requireVaultStatusCheckNow"
	OpRequireAllVaultsStatusCheckNow    = "requireAllVaultsStatusCheckNow"
	OpRequireAccountAndVaultStatusCheck = "requireAccountAndVaultStatusCheck"
	OpForgiveAccountStatusCheck         = "forgiveAccountStatusCheck"
	OpForgiveVaultStatusCheck           = "forgiveVaultStatusCheck"
)

type Instruction struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

type BatchItem struct {
	Target     library.Address `json:"target"`
	OnBehalfOf library.Address `json:"on_behalf_of"`
	Value      uint64          `json:"value"`
	Data       []byte          `json:"data"`
}

type CallArgs struct {
	Target     library.Address `json:"target"`
	OnBehalfOf library.Address `json:"on_behalf_of"`
	Value      uint64          `json:"value"`
	Data       []byte          `json:"data"`
}

type CallbackArgs struct {
	OnBehalfOf library.Address `json:"on_behalf_of"`
	Value      uint64          `json:"value"`
	Data       []byte          `json:"data"`
}

type BatchArgs struct {
	Items []BatchItem `json:"items"`
}

type PermitArgs struct {
	Signer    library.Address `json:"signer"`
	Sender    library.Address `json:"sender"`
	Namespace uint64          `json:"nonce_namespace"`
	Nonce     uint64          `json:"nonce"`
	Deadline  int64           `json:"deadline"`
	// Value must be available in the connector's balance when the permit runs. It is not moved by
	// the permit itself, the wrapped instruction carries its own value.
	Value     uint64 `json:"value"`
	Data      []byte `json:"data"`
	Signature []byte `json:"signature"`
}

type AccountArgs struct {
	Account library.Address `json:"account"`
}

type VaultArgs struct {
	Account library.Address `json:"account"`
	Vault   library.Address `json:"vault"`
}

type ReorderArgs struct {
	Account library.Address `json:"account"`
	Index1  int             `json:"index1"`
	Index2  int             `json:"index2"`
}

type SetNonceArgs struct {
	Prefix    library.Prefix `json:"prefix"`
	Namespace uint64         `json:"nonce_namespace"`
	Nonce     uint64         `json:"nonce"`
}

type SetOperatorArgs struct {
	Prefix   library.Prefix       `json:"prefix"`
	Operator library.Address      `json:"operator"`
	Mask     library.OperatorMask `json:"mask"`
}

type SetAccountOperatorArgs struct {
	Account    library.Address `json:"account"`
	Operator   library.Address `json:"operator"`
	Authorized bool            `json:"authorized"`
}

func Encode(op string, args any) ([]byte, error) {
	i := Instruction{Op: op}
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		i.Args = b
	}
	return json.Marshal(i)
}

// MustEncode is Encode for arguments that are known to marshal.
func MustEncode(op string, args any) []byte {
	b, err := Encode(op, args)
	if err != nil {
		panic(err)
	}
	return b
}

func Decode(data []byte) (Instruction, error) {
	var i Instruction
	if len(data) == 0 {
		return i, library.Fail(library.InvalidData, "empty instruction")
	}
	if err := json.Unmarshal(data, &i); err != nil {
		return i, library.Wrap(err, library.InvalidData, "malformed instruction")
	}
	if i.Op == "" {
		return i, library.Fail(library.InvalidData, "instruction has no op")
	}
	return i, nil
}

// Bind unmarshals the instruction arguments into v.
func (i Instruction) Bind(v any) error {
	if len(i.Args) == 0 {
		return library.Fail(library.InvalidData, "%s requires arguments", i.Op)
	}
	if err := json.Unmarshal(i.Args, v); err != nil {
		return library.Wrap(err, library.InvalidData, "malformed arguments for %s", i.Op)
	}
	return nil
}
