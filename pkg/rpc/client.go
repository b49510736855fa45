// Package rpc talks JSON-RPC to a network endpoint: fetching the latest
// blockhash for building transactions and broadcasting signed ones.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/fystack/walletcore/pkg/logger"
	"github.com/fystack/walletcore/pkg/wire"
)

// Client is a minimal JSON-RPC client over HTTP.
type Client struct {
	url   string
	httpc *http.Client
}

// Options configures the client.
type Options struct {
	URL     string
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	return &Client{url: opts.URL, httpc: httpc}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return e.Message
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: endpoint returned status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// GetLatestBlockhash returns the current network state reference for building
// a transaction. The call is idempotent, so transient failures are retried.
func (c *Client) GetLatestBlockhash(ctx context.Context) (wire.Hash, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	err := retry.Do(
		func() error {
			return c.call(ctx, "getLatestBlockhash", []interface{}{}, &result)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("RPC: retrying getLatestBlockhash", "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		return wire.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	return wire.HashFromBase58(result.Value.Blockhash)
}

// SendTransaction broadcasts a signed transaction exactly once and returns
// its signature. Broadcasts are never retried here: a rejected transaction
// must be rebuilt against fresh network state, not resubmitted blindly.
func (c *Client) SendTransaction(ctx context.Context, tx *wire.Transaction) (wire.Signature, error) {
	encoded, err := wire.EncodeTransaction(tx)
	if err != nil {
		return wire.Signature{}, fmt.Errorf("encode transaction: %w", err)
	}

	var sigText string
	params := []interface{}{
		encoded,
		map[string]interface{}{"encoding": "base58"},
	}
	if err := c.call(ctx, "sendTransaction", params, &sigText); err != nil {
		return wire.Signature{}, err
	}

	return wire.DecodeSignature(sigText)
}
