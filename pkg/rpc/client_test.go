package rpc

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fystack/walletcore/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransfer(t *testing.T) *wire.Transaction {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	from, err := wire.PublicKeyFromBytes(pub)
	require.NoError(t, err)
	var recent wire.Hash
	copy(recent[:], []byte("blockhash-for-tests-blockhash-ab"))
	return wire.NewTransferTransaction(from, from, 1_000, recent)
}

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": 1}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGetLatestBlockhash(t *testing.T) {
	var recent wire.Hash
	copy(recent[:], []byte("fresh-blockhash-fresh-blockhash!"))

	srv := rpcServer(t, func(method string, _ []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "getLatestBlockhash", method)
		return map[string]interface{}{
			"value": map[string]interface{}{"blockhash": recent.String()},
		}, nil
	})
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)

	got, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recent, got)
}

func TestGetLatestBlockhash_RetriesTransientFailure(t *testing.T) {
	var recent wire.Hash
	copy(recent[:], []byte("fresh-blockhash-fresh-blockhash!"))

	var calls atomic.Int32
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *rpcError) {
		if calls.Add(1) < 3 {
			return nil, &rpcError{Code: -32000, Message: "node is behind"}
		}
		return map[string]interface{}{
			"value": map[string]interface{}{"blockhash": recent.String()},
		}, nil
	})
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)

	got, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recent, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendTransaction(t *testing.T) {
	tx := testTransfer(t)
	expected := tx.Signatures[0]

	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "sendTransaction", method)
		require.Len(t, params, 2)

		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		decoded, err := wire.DecodeTransaction(encoded)
		require.NoError(t, err)
		assert.Equal(t, tx, decoded)

		return expected.String(), nil
	})
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)

	sig, err := client.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, expected, sig)
}

func TestSendTransaction_RejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *rpcError) {
		calls.Add(1)
		return nil, &rpcError{Code: -32002, Message: "blockhash expired"}
	})
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.SendTransaction(context.Background(), testTransfer(t))
	require.Error(t, err)
	assert.Equal(t, "blockhash expired", err.Error())
	assert.Equal(t, int32(1), calls.Load(), "broadcasts must be single-attempt")
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)
}

func TestCall_BadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "gateway error")
	}))
	defer srv.Close()

	client, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.SendTransaction(context.Background(), testTransfer(t))
	assert.ErrorContains(t, err, "status 502")
}
