package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleAccounts() TriggerAccounts {
	mk := func(b byte) [32]byte {
		var k [32]byte
		k[0] = b
		return k
	}
	return TriggerAccounts{
		SubscriptionPDA: mk(1),
		ConfigPDA: mk(2),
		TriggerAuthority: mk(3),
		SubscriberTokenAccount: mk(4),
		MerchantTokenAccount: mk(5),
		FeeTokenAccount: mk(6),
		TokenMint: mk(7),
		Subscriber: mk(8),
		TokenProgram: mk(9),
		SystemProgram: mk(10),
		MemoProgram: mk(11),
		InstructionsSysvar: mk(12),
	}
}

// decodedMessage mirrors Message but is built by an independent,
// from-scratch reader over the serialized bytes, to check the
// round-trip property without reusing Message.Serialize itself.
type decodedMessage struct {
	header Header
	accountKeys [][32]byte
	signerFlags []bool
	writableFlags []bool
	blockhash [32]byte
	instructions []decodedInstruction
}

type decodedInstruction struct {
	programIDIndex int
	accountIndices []int
	data []byte
}

func readCompactU16(buf []byte, offset int) (int, int) {
	v := 0
	shift := 0
	for {
		b := buf[offset]
		offset++
		v |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return v, offset
}

func decodeMessage(buf []byte) decodedMessage {
	var out decodedMessage
	out.header = Header{
		NumRequiredSignatures: buf[0],
		NumReadonlySignedAccounts: buf[1],
		NumReadonlyUnsignedAccounts: buf[2],
	}
	offset := 3

	count, offset2 := readCompactU16(buf, offset)
	offset = offset2
	out.accountKeys = make([][32]byte, count)
	out.signerFlags = make([]bool, count)
	out.writableFlags = make([]bool, count)
	for i := 0; i < count; i++ {
		copy(out.accountKeys[i][:], buf[offset:offset+32])
		offset += 32
		numSigners := int(out.header.NumRequiredSignatures)
		numReadonlySigned := int(out.header.NumReadonlySignedAccounts)
		numReadonlyUnsigned := int(out.header.NumReadonlyUnsignedAccounts)
		out.signerFlags[i] = i < numSigners
		if i < numSigners {
			out.writableFlags[i] = i < numSigners-numReadonlySigned
		} else {
			nonSignerIdx := i - numSigners
			nonSignerCount := count - numSigners
			out.writableFlags[i] = nonSignerIdx < nonSignerCount-numReadonlyUnsigned
		}
	}

	copy(out.blockhash[:], buf[offset:offset+32])
	offset += 32

	ixCount, offset3 := readCompactU16(buf, offset)
	offset = offset3
	out.instructions = make([]decodedInstruction, ixCount)
	for i := 0; i < ixCount; i++ {
		var ix decodedInstruction
		ix.programIDIndex = int(buf[offset])
		offset++
		accCount, o := readCompactU16(buf, offset)
		offset = o
		ix.accountIndices = make([]int, accCount)
		for j := 0; j < accCount; j++ {
			ix.accountIndices[j] = int(buf[offset])
			offset++
		}
		dataLen, o2 := readCompactU16(buf, offset)
		offset = o2
		ix.data = append([]byte(nil), buf[offset:offset+dataLen]...)
		offset += dataLen
		out.instructions[i] = ix
	}

	return out
}

func TestMessageRoundTrip(t *testing.T) {
	var programID [32]byte
	programID[0] = 0xAA

	ix := BuildTriggerInstruction(programID, sampleAccounts(), OpcodePayment, "sub_abcd", 1700000000)

	var blockhash [32]byte
	for i := range blockhash {
		blockhash[i] = byte(i)
	}

	msg, err := BuildMessage([]Instruction{ix}, blockhash)
	require.NoError(t, err)

	raw, err := msg.Serialize()
	require.NoError(t, err)

	decoded := decodeMessage(raw)

	require.Equal(t, msg.Header, decoded.header)
	require.Equal(t, msg.RecentBlockhash, decoded.blockhash)
	require.Equal(t, msg.AccountKeys, decoded.accountKeys)
	require.Len(t, decoded.instructions, 1)

	gotProgramID := decoded.accountKeys[decoded.instructions[0].programIDIndex]
	require.Equal(t, programID, gotProgramID)

	// A key listed more than once in the instruction (the subscription
	// PDA is both writable and read-only) carries one merged flag pair in
	// the message: signer/writable if any of its listings is.
	wantSigner := make(map[[32]byte]bool)
	wantWritable := make(map[[32]byte]bool)
	for _, acc := range ix.Accounts {
		wantSigner[acc.PublicKey] = wantSigner[acc.PublicKey] || acc.IsSigner
		wantWritable[acc.PublicKey] = wantWritable[acc.PublicKey] || acc.IsWritable
	}

	require.Len(t, decoded.instructions[0].accountIndices, len(ix.Accounts))
	for i, acc := range ix.Accounts {
		gotKey := decoded.accountKeys[decoded.instructions[0].accountIndices[i]]
		require.Equal(t, acc.PublicKey, gotKey)

		idx := decoded.instructions[0].accountIndices[i]
		require.Equal(t, wantSigner[acc.PublicKey], decoded.signerFlags[idx])
		require.Equal(t, wantWritable[acc.PublicKey], decoded.writableFlags[idx])
	}

	require.Equal(t, ix.Data, decoded.instructions[0].data)
}

func TestSignedTransactionEnvelope(t *testing.T) {
	var programID [32]byte
	programID[0] = 0xBB
	ix := BuildTriggerInstruction(programID, sampleAccounts(), OpcodeNotification, "sub_x", 42)

	var blockhash [32]byte
	msg, err := BuildMessage([]Instruction{ix}, blockhash)
	require.NoError(t, err)

	var sig [64]byte
	for i := range sig {
		sig[i] = byte(i)
	}

	env, err := SignedTransaction(sig, msg)
	require.NoError(t, err)

	// compact-u16(1) is a single 0x01 byte.
	require.Equal(t, byte(1), env[0])
	require.Equal(t, sig[:], env[1:65])

	rawMessage, err := msg.Serialize()
	require.NoError(t, err)
	require.Equal(t, rawMessage, env[65:])
}
