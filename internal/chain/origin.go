// Package chain is the host ledger the weather module runs inside: origins,
// extrinsics, events, overlay state and the runtime entry points the block
// author drives once per block.
package chain

import (
	"encoding/json"
	"fmt"
)

// OriginKind tells who dispatched a call.
type OriginKind int

const (
	// OriginNone is the block author itself, used for inherents.
	OriginNone OriginKind = iota
	// OriginSigned is an end-user account.
	OriginSigned
)

func (k OriginKind) String() string {
	switch k {
	case OriginNone:
		return "none"
	case OriginSigned:
		return "signed"
	default:
		return fmt.Sprintf("origin(%d)", int(k))
	}
}

// Origin is the dispatcher of an extrinsic.
type Origin struct {
	Kind    OriginKind
	Account string
}

// None is the origin of inherents.
func None() Origin { return Origin{Kind: OriginNone} }

// Signed is the origin of a user-submitted extrinsic.
func Signed(account string) Origin { return Origin{Kind: OriginSigned, Account: account} }

// EnsureNone fails unless o is None.
func (o Origin) EnsureNone() error {
	if o.Kind != OriginNone {
		return ErrBadOrigin
	}
	return nil
}

// EnsureSigned returns the signing account, failing for any other origin.
func (o Origin) EnsureSigned() (string, error) {
	if o.Kind != OriginSigned || o.Account == "" {
		return "", ErrBadOrigin
	}
	return o.Account, nil
}

func (o Origin) String() string {
	if o.Kind == OriginSigned {
		return "signed:" + o.Account
	}
	return o.Kind.String()
}

// MarshalJSON renders the origin as {"kind": ..., "account": ...}.
func (o Origin) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Account string `json:"account,omitempty"`
	}{Kind: o.Kind.String(), Account: o.Account})
}
