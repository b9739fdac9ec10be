package txbuilder

import "github.com/chainsub/orchestrator/internal/services/hashutil"

// Opcode selects trigger-instruction behavior: 0 = payment,
// 1 = notification.
type Opcode uint8

const (
	OpcodePayment Opcode = 0
	OpcodeNotification Opcode = 1
)

// AccountMeta describes one account reference inside an instruction:
// the account's public key plus its signer/writable flags.
type AccountMeta struct {
	PublicKey [32]byte
	IsSigner bool
	IsWritable bool
}

func writable(pk [32]byte) AccountMeta { return AccountMeta{PublicKey: pk, IsWritable: true} }
func readonly(pk [32]byte) AccountMeta { return AccountMeta{PublicKey: pk} }
func signerW(pk [32]byte) AccountMeta { return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: true} }

// Instruction is one Anchor-style instruction: a program id, an
// ordered account list, and length-prefixed binary data opening with
// an 8-byte method discriminator.
type Instruction struct {
	ProgramID [32]byte
	Accounts []AccountMeta
	Data []byte
}

// TriggerAccounts is the account list, in order:
// subscription-PDA (writable), config-PDA (read), trigger-authority
// (signer, writable), subscriber-token-account (writable),
// merchant-token-account (writable), fee-token-account (writable),
// token-mint (read), subscription-PDA again (read), subscriber
// (writable), token-program, system-program, memo-program,
// instructions-sysvar.
type TriggerAccounts struct {
	SubscriptionPDA [32]byte
	ConfigPDA [32]byte
	TriggerAuthority [32]byte
	SubscriberTokenAccount [32]byte
	MerchantTokenAccount [32]byte
	FeeTokenAccount [32]byte
	TokenMint [32]byte
	Subscriber [32]byte
	TokenProgram [32]byte
	SystemProgram [32]byte
	MemoProgram [32]byte
	InstructionsSysvar [32]byte
}

// BuildTriggerInstruction assembles the "process_payment" or
// "send_reminder" instruction selected by opcode.
// subscriptionID and timestampSeconds are the instruction's payload
// fields; the account list is fixed regardless of opcode.
func BuildTriggerInstruction(programID [32]byte, accounts TriggerAccounts, opcode Opcode, subscriptionID string, timestampSeconds int64) Instruction {
	method := "process_payment"
	if opcode == OpcodeNotification {
		method = "send_reminder"
	}

	data := newEncoder().
		WriteDiscriminator(hashutil.Discriminator(method)).
		WriteU8(uint8(opcode)).
		WriteString(subscriptionID).
		WriteI64(timestampSeconds).
		bytes()

	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			writable(accounts.SubscriptionPDA),
			readonly(accounts.ConfigPDA),
			signerW(accounts.TriggerAuthority),
			writable(accounts.SubscriberTokenAccount),
			writable(accounts.MerchantTokenAccount),
			writable(accounts.FeeTokenAccount),
			readonly(accounts.TokenMint),
			readonly(accounts.SubscriptionPDA),
			writable(accounts.Subscriber),
			readonly(accounts.TokenProgram),
			readonly(accounts.SystemProgram),
			readonly(accounts.MemoProgram),
			readonly(accounts.InstructionsSysvar),
		},
		Data: data,
	}
}
