package txbuilder

import (
	"crypto/sha256"
	"fmt"
)

// Header is the Solana-style 3-byte message header: the count of
// required signatures, the count of readonly signed accounts, and the
// count of readonly unsigned accounts.
type Header struct {
	NumRequiredSignatures uint8
	NumReadonlySignedAccounts uint8
	NumReadonlyUnsignedAccounts uint8
}

// Message is the signable payload: a header, a
// deduplicated account-keys list, a 32-byte recent blockhash, and the
// serialized instructions referencing accounts by index into that list.
type Message struct {
	Header Header
	AccountKeys [][32]byte
	RecentBlockhash [32]byte
	Instructions []Instruction

	// accountIndex speeds up Serialize's index lookups for messages
	// built via BuildMessage. Messages assembled by hand (e.g. in
	// tests) leave it nil and fall back to a linear scan.
	accountIndex map[[32]byte]int
}

// BuildMessage deduplicates the accounts referenced across
// instructions, orders them signers-then-non-signers and
// writable-then-readonly within each group (the ordering the header's
// three counts describe), and returns the assembled Message.
func BuildMessage(instructions []Instruction, recentBlockhash [32]byte) (*Message, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("txbuilder: message must contain at least one instruction")
	}

	type entry struct {
		key [32]byte
		isSigner bool
		isWritable bool
	}
	order := make([]entry, 0, 8)
	index := make(map[[32]byte]int)

	upsert := func(m AccountMeta) {
		if i, ok := index[m.PublicKey]; ok {
			if m.IsSigner {
				order[i].isSigner = true
			}
			if m.IsWritable {
				order[i].isWritable = true
			}
			return
		}
		index[m.PublicKey] = len(order)
		order = append(order, entry{key: m.PublicKey, isSigner: m.IsSigner, isWritable: m.IsWritable})
	}

	for _, ix := range instructions {
		upsert(AccountMeta{PublicKey: ix.ProgramID})
		for _, a := range ix.Accounts {
			upsert(a)
		}
	}

	group := func(wantSigner, wantWritable bool) []entry {
		var out []entry
		for _, e := range order {
			if e.isSigner == wantSigner && e.isWritable == wantWritable {
				out = append(out, e)
			}
		}
		return out
	}

	signersWritable := group(true, true)
	signersReadonly := group(true, false)
	nonSignersWritable := group(false, true)
	nonSignersReadonly := group(false, false)

	final := make([][32]byte, 0, len(order))
	finalIndex := make(map[[32]byte]int, len(order))
	appendAll := func(es []entry) {
		for _, e := range es {
			finalIndex[e.key] = len(final)
			final = append(final, e.key)
		}
	}
	appendAll(signersWritable)
	appendAll(signersReadonly)
	appendAll(nonSignersWritable)
	appendAll(nonSignersReadonly)

	header := Header{
		NumRequiredSignatures: uint8(len(signersWritable) + len(signersReadonly)),
		NumReadonlySignedAccounts: uint8(len(signersReadonly)),
		NumReadonlyUnsignedAccounts: uint8(len(nonSignersReadonly)),
	}

	return &Message{
		Header: header,
		AccountKeys: final,
		RecentBlockhash: recentBlockhash,
		Instructions: instructions,
		accountIndex: finalIndex,
	}, nil
}

func (m *Message) resolveIndex(key [32]byte) (int, bool) {
	if m.accountIndex == nil {
		for i, k := range m.AccountKeys {
			if k == key {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := m.accountIndex[key]
	return i, ok
}

// Serialize renders the message in wire order: header, account-keys
// list, recent blockhash, then each instruction as (program-id index,
// account-index list, data length prefix, data).
func (m *Message) Serialize() ([]byte, error) {
	e := newEncoder()
	e.WriteU8(m.Header.NumRequiredSignatures)
	e.WriteU8(m.Header.NumReadonlySignedAccounts)
	e.WriteU8(m.Header.NumReadonlyUnsignedAccounts)

	e.buf.Write(compactU16(len(m.AccountKeys)))
	for _, k := range m.AccountKeys {
		e.WriteFixedBytes(k[:])
	}

	e.WriteFixedBytes(m.RecentBlockhash[:])

	e.buf.Write(compactU16(len(m.Instructions)))
	for _, ix := range m.Instructions {
		programIdx, ok := m.resolveIndex(ix.ProgramID)
		if !ok {
			return nil, fmt.Errorf("txbuilder: program id not present in account keys")
		}
		e.WriteU8(uint8(programIdx))

		e.buf.Write(compactU16(len(ix.Accounts)))
		for _, a := range ix.Accounts {
			accIdx, ok := m.resolveIndex(a.PublicKey)
			if !ok {
				return nil, fmt.Errorf("txbuilder: instruction account not present in account keys")
			}
			e.WriteU8(uint8(accIdx))
		}

		e.buf.Write(compactU16(len(ix.Data)))
		e.WriteFixedBytes(ix.Data)
	}

	return e.bytes(), nil
}

// Digest returns the SHA-256 of the serialized message, which is the
// 32-byte input the threshold signer signs.
func (m *Message) Digest() ([32]byte, error) {
	raw, err := m.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(raw), nil
}

// SignedTransaction renders the envelope:
// compact-u16(1) || 64-byte signature || message.
func SignedTransaction(signature [64]byte, message *Message) ([]byte, error) {
	raw, err := message.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+64+len(raw))
	out = append(out, compactU16(1)...)
	out = append(out, signature[:]...)
	out = append(out, raw...)
	return out, nil
}
