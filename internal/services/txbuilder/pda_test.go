package txbuilder

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

// TestFindProgramAddressDeterministic covers: for
// a fixed program id and seed list, two independent invocations must
// return byte-identical PDAs.
func TestFindProgramAddressDeterministic(t *testing.T) {
	raw, err := base58.Decode("7c1tGePFVT3ztPEESfzG7gFqYiCJUDjFa7PCeyMSYtub")
	require.NoError(t, err)
	require.Len(t, raw, 32)
	var programID [32]byte
	copy(programID[:], raw)

	seeds := [][]byte{[]byte("subscription"), []byte("sub_abcd")}

	addr1, bump1, err := FindProgramAddress(seeds, programID)
	require.NoError(t, err)
	addr2, bump2, err := FindProgramAddress(seeds, programID)
	require.NoError(t, err)

	require.Equal(t, addr1, addr2)
	require.Equal(t, bump1, bump2)
}

func TestFindProgramAddressVariesWithSeeds(t *testing.T) {
	var programID [32]byte
	for i := range programID {
		programID[i] = byte(i)
	}

	addrA, _, err := FindProgramAddress([][]byte{[]byte("subscription"), []byte("sub_a")}, programID)
	require.NoError(t, err)
	addrB, _, err := FindProgramAddress([][]byte{[]byte("subscription"), []byte("sub_b")}, programID)
	require.NoError(t, err)

	require.NotEqual(t, addrA, addrB)
}

func TestSubscriptionAndConfigPDADiffer(t *testing.T) {
	var programID [32]byte
	programID[0] = 1

	sub, _, err := SubscriptionPDA("sub_abcd", programID)
	require.NoError(t, err)
	cfg, _, err := ConfigPDA(programID)
	require.NoError(t, err)

	require.NotEqual(t, sub, cfg)
}
