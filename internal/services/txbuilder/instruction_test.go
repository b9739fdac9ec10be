package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuildTriggerInstructionPaymentDiscriminator checks that the
// payment instruction's data begins with the process_payment
// discriminator bd511ec68bba7317.
func TestBuildTriggerInstructionPaymentDiscriminator(t *testing.T) {
	var programID [32]byte
	ix := BuildTriggerInstruction(programID, sampleAccounts(), OpcodePayment, "sub_abcd", 1700000000)

	want := []byte{0xbd, 0x51, 0x1e, 0xc6, 0x8b, 0xba, 0x73, 0x17}
	require.Equal(t, want, ix.Data[:8])
	require.Equal(t, uint8(OpcodePayment), ix.Data[8])
}

func TestBuildTriggerInstructionAccountOrder(t *testing.T) {
	accounts := sampleAccounts()
	var programID [32]byte
	ix := BuildTriggerInstruction(programID, accounts, OpcodePayment, "sub_abcd", 0)

	require.Len(t, ix.Accounts, 13)
	require.Equal(t, accounts.SubscriptionPDA, ix.Accounts[0].PublicKey)
	require.True(t, ix.Accounts[0].IsWritable)
	require.False(t, ix.Accounts[0].IsSigner)

	require.Equal(t, accounts.ConfigPDA, ix.Accounts[1].PublicKey)
	require.False(t, ix.Accounts[1].IsWritable)

	require.Equal(t, accounts.TriggerAuthority, ix.Accounts[2].PublicKey)
	require.True(t, ix.Accounts[2].IsSigner)
	require.True(t, ix.Accounts[2].IsWritable)

	require.Equal(t, accounts.SubscriptionPDA, ix.Accounts[7].PublicKey)
	require.False(t, ix.Accounts[7].IsSigner)
	require.False(t, ix.Accounts[7].IsWritable)

	require.Equal(t, accounts.InstructionsSysvar, ix.Accounts[12].PublicKey)
}
