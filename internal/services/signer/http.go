package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
)

// HTTPSigner calls a remote threshold-signature service over HTTP,
// using the same request/response and timeout shape as the façade's
// HTTP client, scoped down to the two operations the service exposes.
type HTTPSigner struct {
	endpoint string
	httpClient *http.Client
}

// NewHTTPSigner creates a signer client against endpoint with the given
// request timeout.
func NewHTTPSigner(endpoint string, timeout time.Duration) *HTTPSigner {
	return &HTTPSigner{
		endpoint: endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type deriveRequest struct {
	Path [][]byte `json:"path"`
}

type deriveResponse struct {
	PublicKey string `json:"public_key"` // base64
	Error string `json:"error,omitempty"`
}

type signRequest struct {
	Path [][]byte `json:"path"`
	Digest string `json:"digest"` // base64, always 32 bytes
}

type signResponse struct {
	Signature string `json:"signature"` // base64, always 64 bytes
	Error string `json:"error,omitempty"`
}

func (c *HTTPSigner) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("threshold signer returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Derive implements ThresholdSigner.
func (c *HTTPSigner) Derive(ctx context.Context, path Path) (solana.PublicKey, error) {
	var resp deriveResponse
	if err := c.post(ctx, "/derive", deriveRequest{Path: path}, &resp); err != nil {
		return solana.PublicKey{}, &ErrSigningFailed{Path: path, Cause: err}
	}
	if resp.Error != "" {
		return solana.PublicKey{}, &ErrSigningFailed{Path: path, Cause: fmt.Errorf("%s", resp.Error)}
	}
	raw, err := base64.StdEncoding.DecodeString(resp.PublicKey)
	if err != nil || len(raw) != 32 {
		return solana.PublicKey{}, &ErrSigningFailed{Path: path, Cause: fmt.Errorf("malformed public key")}
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// Sign implements ThresholdSigner.
func (c *HTTPSigner) Sign(ctx context.Context, path Path, digest [32]byte) ([64]byte, error) {
	var out [64]byte
	req := signRequest{Path: path, Digest: base64.StdEncoding.EncodeToString(digest[:])}

	var resp signResponse
	if err := c.post(ctx, "/sign", req, &resp); err != nil {
		return out, &ErrSigningFailed{Path: path, Cause: err}
	}
	if resp.Error != "" {
		return out, &ErrSigningFailed{Path: path, Cause: fmt.Errorf("%s", resp.Error)}
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Signature)
	if err != nil || len(raw) != 64 {
		return out, &ErrSigningFailed{Path: path, Cause: fmt.Errorf("malformed signature")}
	}
	copy(out[:], raw)
	return out, nil
}
