package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/sha512"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gagliardetto/solana-go"
)

// SimulatedSigner deterministically derives an Ed25519 keypair per Path
// without any network call, for devnet runs and tests. It hashes each
// path segment into a synthetic BIP32 child index and walks a master
// extended key the same way a BIP32 derivation path is walked,
// generalized here from a hardened-or-not numeric path to an arbitrary
// byte-string path.
type SimulatedSigner struct {
	mu sync.Mutex
	master *hdkeychain.ExtendedKey
	cache map[string]ed25519.PrivateKey
}

// NewSimulatedSigner builds a signer whose keys are deterministically
// derived from seed (at least 16 bytes, per hdkeychain.NewMaster).
func NewSimulatedSigner(seed []byte) (*SimulatedSigner, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return &SimulatedSigner{master: master, cache: make(map[string]ed25519.PrivateKey)}, nil
}

func (s *SimulatedSigner) privateKey(path Path) (ed25519.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pathKey(path)
	if priv, ok := s.cache[key]; ok {
		return priv, nil
	}

	// Derive one BIP32 child per path segment by hashing the segment to
	// a uint32 index, then hash the resulting extended key's serialized
	// form through SHA-512 and use the first 32 bytes as the Ed25519 seed.
	current := s.master
	for _, segment := range path {
		idx := segmentIndex(segment)
		child, err := current.Derive(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}

	serialized := current.String()
	digest := sha512.Sum512([]byte(serialized))
	priv := ed25519.NewKeyFromSeed(digest[:32])
	s.cache[key] = priv
	return priv, nil
}

func segmentIndex(segment []byte) uint32 {
	sum := hashSegment(segment)
	idx := uint32(sum[0])<<24 | uint32(sum[1])<<16 | uint32(sum[2])<<8 | uint32(sum[3])
	// Stay in the non-hardened range so hdkeychain.Derive never rejects
	// the index.
	return idx &^ hdkeychain.HardenedKeyStart
}

func hashSegment(segment []byte) [32]byte {
	digest := sha512.Sum512(segment)
	var out [32]byte
	copy(out[:], digest[:32])
	return out
}

// Derive implements ThresholdSigner.
func (s *SimulatedSigner) Derive(ctx context.Context, path Path) (solana.PublicKey, error) {
	priv, err := s.privateKey(path)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	return solana.PublicKeyFromBytes(pub), nil
}

// Sign implements ThresholdSigner.
func (s *SimulatedSigner) Sign(ctx context.Context, path Path, digest [32]byte) ([64]byte, error) {
	priv, err := s.privateKey(path)
	if err != nil {
		return [64]byte{}, &ErrSigningFailed{Path: path, Cause: err}
	}
	sig := ed25519.Sign(priv, digest[:])
	var out [64]byte
	copy(out[:], sig)
	return out, nil
}
