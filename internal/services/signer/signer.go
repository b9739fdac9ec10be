// Package signer abstracts the remote threshold-signature service: the
// orchestrator never sees private key material, it only consumes a
// signing oracle that derives stable public keys from a
// domain-separating derivation path and signs 32-byte digests.
//
// The interface is a narrow Sign/GetAddress-style contract that callers
// inject rather than construct concretely, so the trigger orchestrator
// can run against a deterministic simulation in tests.
package signer

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Path is an ordered sequence of byte strings that domain-separates a
// derived key. Two paths are in use: the empty path (the main key) and
// ["fee_collection"].
type Path [][]byte

// FeeCollectionPath is the well-known derivation path for the optional
// fee-collection wallet.
var FeeCollectionPath = Path{[]byte("fee_collection")}

// MainPath is the empty derivation path used for the orchestrator's
// trigger-authority key.
var MainPath = Path{}

// ErrSigningFailed wraps transport-level signing failures distinctly
// from validation errors.
type ErrSigningFailed struct {
	Path Path
	Cause error
}

func (e *ErrSigningFailed) Error() string {
	return fmt.Sprintf("threshold signer: signing failed for path %v: %v", e.Path, e.Cause)
}

func (e *ErrSigningFailed) Unwrap() error { return e.Cause }

// ThresholdSigner is the capability interface injected into the trigger
// orchestrator.
//
// Contract: both methods are side-effect-free from the core's
// perspective; implementations may perform network I/O but must not
// mutate orchestrator state. The trigger orchestrator calls Derive on
// every trigger and keeps no cache of its own; SimulatedSigner caches
// keys per path, HTTPSigner makes a request on every call.
type ThresholdSigner interface {
	// Derive returns the 32-byte public key for path. Idempotent: the
	// same path always yields the same key.
	Derive(ctx context.Context, path Path) (solana.PublicKey, error)

	// Sign returns a 64-byte signature over digest, derived for path.
	// digest MUST be exactly 32 bytes.
	Sign(ctx context.Context, path Path, digest [32]byte) ([64]byte, error)
}

// pathKey turns a Path into a stable map key for caching.
func pathKey(p Path) string {
	out := make([]byte, 0, 32)
	for _, seg := range p {
		out = append(out, byte(len(seg)))
		out = append(out, seg...)
	}
	return string(out)
}
