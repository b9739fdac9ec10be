package txbuilder

import (
	"bytes"
	"encoding/binary"
)

// encoder accumulates an Anchor-style, length-prefixed little-endian
// binary instruction-data payload.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

// WriteDiscriminator writes the 8-byte method discriminator that opens
// every instruction's data.
func (e *encoder) WriteDiscriminator(d [8]byte) *encoder {
	e.buf.Write(d[:])
	return e
}

// WriteU8 writes a single byte, used for opcodes and enum tags.
func (e *encoder) WriteU8(v uint8) *encoder {
	e.buf.WriteByte(v)
	return e
}

// WriteU32 writes a little-endian uint32.
func (e *encoder) WriteU32(v uint32) *encoder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf.Write(tmp[:])
	return e
}

// WriteU64 writes a little-endian uint64.
func (e *encoder) WriteU64(v uint64) *encoder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf.Write(tmp[:])
	return e
}

// WriteI64 writes a little-endian int64, used for the trigger
// instruction's timestamp field.
func (e *encoder) WriteI64(v int64) *encoder {
	return e.WriteU64(uint64(v))
}

// WriteString writes a u32 length prefix followed by the raw UTF-8
// bytes.
func (e *encoder) WriteString(s string) *encoder {
	e.WriteU32(uint32(len(s)))
	e.buf.WriteString(s)
	return e
}

// WriteFixedBytes writes raw bytes with no length prefix, used for
// 32-byte pubkeys embedded directly in instruction data.
func (e *encoder) WriteFixedBytes(b []byte) *encoder {
	e.buf.Write(b)
	return e
}

// WriteOptionNone writes Option<T>'s None tag (0x00).
func (e *encoder) WriteOptionNone() *encoder {
	e.buf.WriteByte(0x00)
	return e
}

// WriteOptionSome writes Option<T>'s Some tag (0x01) followed by
// write(value).
func (e *encoder) WriteOptionSome(write func(*encoder)) *encoder {
	e.buf.WriteByte(0x01)
	write(e)
	return e
}

// compactU16 encodes n using Solana's variable-length compact-u16
// encoding (7 bits per byte, high bit as continuation), used both in
// the signed-transaction envelope's signature count and the message's
// account-key/instruction counts.
func compactU16(n int) []byte {
	v := uint16(n)
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}
