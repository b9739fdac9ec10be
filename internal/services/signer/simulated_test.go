package signer

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulatedSignerDeriveIsDeterministic(t *testing.T) {
	s, err := NewSimulatedSigner([]byte("test-seed-0123456789abcdef"))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := s.Derive(ctx, MainPath)
	require.NoError(t, err)
	b, err := s.Derive(ctx, MainPath)
	require.NoError(t, err)
	require.Equal(t, a, b)

	fee, err := s.Derive(ctx, FeeCollectionPath)
	require.NoError(t, err)
	require.NotEqual(t, a, fee, "main and fee_collection paths must derive distinct keys")
}

func TestSimulatedSignerSignatureVerifies(t *testing.T) {
	s, err := NewSimulatedSigner([]byte("test-seed-0123456789abcdef"))
	require.NoError(t, err)

	ctx := context.Background()
	pub, err := s.Derive(ctx, MainPath)
	require.NoError(t, err)

	var digest [32]byte
	copy(digest[:], []byte("0123456789abcdef0123456789abcdef"))

	sig, err := s.Sign(ctx, MainPath, digest)
	require.NoError(t, err)

	require.True(t, ed25519.Verify(pub.Bytes(), digest[:], sig[:]))
}
