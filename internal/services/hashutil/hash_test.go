package hashutil

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum256Deterministic(t *testing.T) {
	a := Sum256([]byte("subscription"), []byte("sub_abcd"))
	b := Sum256([]byte("subscription"), []byte("sub_abcd"))
	assert.Equal(t, a, b)

	want := sha256.Sum256([]byte("subscriptionsub_abcd"))
	assert.Equal(t, want, a)
}

func TestDiscriminatorMatchesHashFormula(t *testing.T) {
	for _, method := range []string{"process_payment", "send_reminder", "initialize"} {
		got := Discriminator(method)
		want := sha256.Sum256([]byte("global:" + method))
		assert.Equal(t, want[:8], got[:])
	}
}

func TestProcessPaymentDiscriminatorConstant(t *testing.T) {
	got := Discriminator("process_payment")
	assert.Equal(t, []byte{0xbd, 0x51, 0x1e, 0xc6, 0x8b, 0xba, 0x73, 0x17}, got[:])
}
