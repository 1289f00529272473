// Package wallet defines the signing collaborator the payment path depends
// on, plus a key-backed implementation for gateway-custodied payments.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Aptos framework identifiers for the native coin transfer instruction.
const (
	TransferFunction = "0x1::coin::transfer"
	NativeCoinType   = "0x1::aptos_coin::AptosCoin"
)

// Session is the live wallet identity. Callers read it once at the start of
// an attempt and never mid-flight, so an in-flight attempt completes against
// the address it started with.
type Session struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// TransferPayload is a single native-currency transfer instruction.
type TransferPayload struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// NativeTransfer builds the transfer instruction for the challenge
// recipient, amount in octas.
func NativeTransfer(recipient string, octas uint64) TransferPayload {
	return TransferPayload{
		Function:      TransferFunction,
		TypeArguments: []string{NativeCoinType},
		Arguments:     []string{recipient, fmt.Sprintf("%d", octas)},
	}
}

// SubmitResult normalizes provider responses: some return a bare hash
// string, others a structured {hash} object.
type SubmitResult struct {
	Hash string `json:"hash"`
}

func (r *SubmitResult) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		r.Hash = bare
		return nil
	}
	var obj struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.Hash = obj.Hash
	return nil
}

// ErrDeclined signals a user-initiated rejection of the signing prompt.
// Callers must surface it as "cancelled", not "failed".
var ErrDeclined = errors.New("user declined the transaction")

// Wallet signs and submits transactions for its session.
type Wallet interface {
	Session() Session
	SignAndSubmitTransaction(ctx context.Context, payload TransferPayload) (SubmitResult, error)
}
