package trigger

import "github.com/mr-tron/base58"

// decodeBase58 decodes a chain address in its wire (base58) form.
func decodeBase58(s string) ([]byte, error) {
	return base58.Decode(s)
}
