// Package rpcfacade is the typed RPC façade: a narrow set of methods
// over an external chain's JSON-RPC, mapping transport/5xx/4xx
// responses onto the three error classes the orchestrator branches on.
// It follows the same capability-interface shape used elsewhere in
// this tree, narrowed to exactly the five operations the trigger
// orchestrator needs.
package rpcfacade

import (
	"context"
	"fmt"
)

// Commitment is the confirmation level: Processed < Confirmed
// < Finalized.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// DefaultCommitment is Confirmed.
const DefaultCommitment = CommitmentConfirmed

// Encoding selects the wire encoding for send_transaction, mirroring the
// "encoding" JSON-RPC param on Solana-shaped chains.
type Encoding string

const (
	EncodingBase58 Encoding = "base58"
	EncodingBase64 Encoding = "base64"
)

// BlockhashResult is the response of latest_blockhash.
type BlockhashResult struct {
	Blockhash [32]byte
	LastValidBlockHeight uint64
}

// TokenAccount describes one account returned by token_accounts_by_owner.
type TokenAccount struct {
	Address string
	Mint string
	Owner string
	Amount uint64
}

// SendTransactionParams bundles send_transaction's inputs.
type SendTransactionParams struct {
	Transaction []byte
	Encoding Encoding
	SkipPreflight bool
	Commitment Commitment
	MaxRetries int
}

// Facade is the capability interface injected into the transaction
// builder/trigger orchestrator.
type Facade interface {
	LatestBlockhash(ctx context.Context, commitment Commitment) (*BlockhashResult, error)
	Balance(ctx context.Context, address string) (uint64, error)
	TokenBalance(ctx context.Context, tokenAccount string) (uint64, error)
	TokenAccountsByOwner(ctx context.Context, owner string, mint *string, programFilter string, encoding Encoding) ([]TokenAccount, error)
	SendTransaction(ctx context.Context, params SendTransactionParams) (signature string, err error)
}

// ErrorClass distinguishes the three failure modes FacadeError reports.
type ErrorClass int

const (
	ClassNetworkUnavailable ErrorClass = iota
	ClassRemoteRejected
	ClassDecoding
)

// FacadeError is the façade's typed error, scoped to the three classes
// above instead of a retry classification.
type FacadeError struct {
	Class ErrorClass
	Code int // remote error code, only set for ClassRemoteRejected
	Message string
	Cause error
}

func (e *FacadeError) Error() string {
	switch e.Class {
		case ClassRemoteRejected:
		return fmt.Sprintf("rpc: remote rejected (code=%d): %s", e.Code, e.Message)
		case ClassDecoding:
		return fmt.Sprintf("rpc: decoding error: %s", e.Message)
		default:
		return fmt.Sprintf("rpc: network unavailable: %s", e.Message)
	}
}

func (e *FacadeError) Unwrap() error { return e.Cause }

func NewNetworkUnavailable(message string, cause error) *FacadeError {
	return &FacadeError{Class: ClassNetworkUnavailable, Message: message, Cause: cause}
}

func NewRemoteRejected(code int, message string) *FacadeError {
	return &FacadeError{Class: ClassRemoteRejected, Code: code, Message: message}
}

func NewDecodingError(message string, cause error) *FacadeError {
	return &FacadeError{Class: ClassDecoding, Message: message, Cause: cause}
}
