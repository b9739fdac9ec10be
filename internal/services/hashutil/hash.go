// Package hashutil wraps SHA-256 for callers that already have their
// input assembled as contiguous byte slices; there is no streaming API
// since every consumer (PDA derivation, instruction discriminators)
// works on small, already-assembled buffers. This is the one component
// in the codebase that is deliberately stdlib-only: no third-party
// library improves on crypto/sha256 for a fixed, non-streaming digest
// (see DESIGN.md).
package hashutil

import "crypto/sha256"

// Sum256 hashes the concatenation of parts and returns the 32-byte
// digest. Concatenating at the call site keeps this a pure function of
// its inputs, which is what the PDA search and discriminator derivation
// both need.
func Sum256(parts...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Discriminator computes the 8-byte Anchor-style instruction
// discriminator for method: the first 8 bytes of sha256("global:<method>").
// This must be computed by hashing, never hard-coded, so that the
// discriminator-property test can verify it.
func Discriminator(method string) [8]byte {
	digest := Sum256([]byte("global:" + method))
	var out [8]byte
	copy(out[:], digest[:8])
	return out
}
