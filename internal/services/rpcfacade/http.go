package rpcfacade

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
)

// HTTPFacade implements Facade over a JSON-RPC 2.0 HTTP transport with
// endpoint failover, narrowed to the five RPC methods the trigger
// orchestrator needs.
type HTTPFacade struct {
	endpoints []string
	httpClient *http.Client
	health *healthTracker
}

// NewHTTPFacade creates a façade over one or more JSON-RPC endpoints.
func NewHTTPFacade(endpoints []string, timeout time.Duration) (*HTTPFacade, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpcfacade: at least one RPC endpoint is required")
	}
	return &HTTPFacade{
		endpoints: endpoints,
		httpClient: &http.Client{Timeout: timeout},
		health: newHealthTracker(),
	}, nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID int `json:"id"`
	Method string `json:"method"`
	Params []interface{} `json:"params,omitempty"`
}

type jsonRPCError struct {
	Code int `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error *jsonRPCError `json:"error"`
}

// call executes method against the first healthy endpoint, failing over
// to the next one on transport error.
func (f *HTTPFacade) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	var lastErr error
	for _, endpoint := range f.endpoints {
		if !f.health.isHealthy(endpoint) {
			continue
		}
		err := f.callOne(ctx, endpoint, method, params, out)
		if err == nil {
			f.health.recordSuccess(endpoint)
			return nil
		}
		if fe, ok := err.(*FacadeError); ok && fe.Class == ClassRemoteRejected {
			// The remote answered; it just rejected the request. Don't
			// fail over for this, and don't penalize the endpoint.
			return err
		}
		f.health.recordFailure(endpoint)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = NewNetworkUnavailable("no healthy RPC endpoint available", nil)
	}
	return lastErr
}

func (f *HTTPFacade) callOne(ctx context.Context, endpoint, method string, params []interface{}, out interface{}) error {
	reqBody := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return NewDecodingError("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return NewNetworkUnavailable("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return NewNetworkUnavailable(err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return NewNetworkUnavailable(fmt.Sprintf("remote returned status %d", resp.StatusCode), nil)
	}

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return NewDecodingError("failed to decode response", err)
	}

	if rpcResp.Error != nil {
		return NewRemoteRejected(rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return NewDecodingError("failed to decode result", err)
	}
	return nil
}

// LatestBlockhash implements Facade.
func (f *HTTPFacade) LatestBlockhash(ctx context.Context, commitment Commitment) (*BlockhashResult, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}

	params := []interface{}{map[string]string{"commitment": string(commitment)}}
	if err := f.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	raw, err := base58.Decode(result.Value.Blockhash)
	if err != nil || len(raw) != 32 {
		return nil, NewDecodingError("malformed blockhash", err)
	}
	var out BlockhashResult
	copy(out.Blockhash[:], raw)
	out.LastValidBlockHeight = result.Value.LastValidBlockHeight
	return &out, nil
}

// Balance implements Facade.
func (f *HTTPFacade) Balance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := f.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// TokenBalance implements Facade.
func (f *HTTPFacade) TokenBalance(ctx context.Context, tokenAccount string) (uint64, error) {
	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := f.call(ctx, "getTokenAccountBalance", []interface{}{tokenAccount}, &result); err != nil {
		return 0, err
	}
	var amount uint64
	if _, err := fmt.Sscanf(result.Value.Amount, "%d", &amount); err != nil {
		return 0, NewDecodingError("malformed token amount", err)
	}
	return amount, nil
}

// TokenAccountsByOwner implements Facade.
func (f *HTTPFacade) TokenAccountsByOwner(ctx context.Context, owner string, mint *string, programFilter string, encoding Encoding) ([]TokenAccount, error) {
	filter := map[string]string{"programId": programFilter}
	if mint != nil {
		filter = map[string]string{"mint": *mint}
	}

	var result struct {
		Value []struct {
			Pubkey string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint string `json:"mint"`
							Owner string `json:"owner"`
							TokenAmount struct {
								Amount string `json:"amount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	params := []interface{}{owner, filter, map[string]string{"encoding": string(encoding)}}
	if err := f.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}

	out := make([]TokenAccount, 0, len(result.Value))
	for _, v := range result.Value {
		var amount uint64
		fmt.Sscanf(v.Account.Data.Parsed.Info.TokenAmount.Amount, "%d", &amount)
		out = append(out, TokenAccount{
				Address: v.Pubkey,
				Mint: v.Account.Data.Parsed.Info.Mint,
				Owner: v.Account.Data.Parsed.Info.Owner,
				Amount: amount,
		})
	}
	return out, nil
}

// SendTransaction implements Facade.
func (f *HTTPFacade) SendTransaction(ctx context.Context, params SendTransactionParams) (string, error) {
	var encoded string
	switch params.Encoding {
		case EncodingBase58:
		encoded = base58.Encode(params.Transaction)
		default:
		encoded = base64.StdEncoding.EncodeToString(params.Transaction)
	}

	var signature string
	opts := map[string]interface{}{
		"encoding": string(params.Encoding),
		"skipPreflight": params.SkipPreflight,
		"preflightCommitment": string(params.Commitment),
		"maxRetries": params.MaxRetries,
	}
	if err := f.call(ctx, "sendTransaction", []interface{}{encoded, opts}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
