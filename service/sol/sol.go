package sol

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/realtoken-app/go-realtoken/service/persist"
)

const (
	// ConfirmationStatusNone means the chain has not seen the transaction
	ConfirmationStatusNone ConfirmationStatus = "none"
	// ConfirmationStatusProcessed means the transaction was processed by a single node
	ConfirmationStatusProcessed ConfirmationStatus = "processed"
	// ConfirmationStatusConfirmed means a supermajority of the cluster voted on the transaction's block
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	// ConfirmationStatusFinalized means the transaction's block is rooted
	ConfirmationStatusFinalized ConfirmationStatus = "finalized"
)

// ConfirmationStatus represents how far a transaction has progressed on-chain
type ConfirmationStatus string

// AtLeastConfirmed reports whether the status is confirmed or finalized
func (c ConfirmationStatus) AtLeastConfirmed() bool {
	return c == ConfirmationStatusConfirmed || c == ConfirmationStatusFinalized
}

// Client is the chain gateway the core depends on. The production implementation talks
// JSON-RPC to a node; tests substitute a fake.
type Client interface {
	AccountExists(ctx context.Context, addr persist.Address) (bool, error)
	GetBalance(ctx context.Context, addr persist.Address) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	Submit(ctx context.Context, signedTx []byte) (string, error)
	GetConfirmationStatus(ctx context.Context, txHash string) (ConfirmationStatus, error)
}

// RPCClient is a Client backed by a node's JSON-RPC endpoint
type RPCClient struct {
	url        string
	httpClient *http.Client
	reqID      int64
}

// NewRPCClient creates a new RPC client for the node at url
func NewRPCClient(url string, httpClient *http.Client) *RPCClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RPCClient{url: url, httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// ErrRPC is returned when the node rejects a call
type ErrRPC struct {
	Method  string
	Code    int
	Message string
}

func (e ErrRPC) Error() string {
	return fmt.Sprintf("rpc %s failed with code %d: %s", e.Method, e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: atomic.AddInt64(&c.reqID, 1), Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	rpcResp := rpcResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("error decoding rpc %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return ErrRPC{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("error decoding rpc %s result: %w", method, err)
		}
	}
	return nil
}

// AccountExists reports whether an account exists at the given address
func (c *RPCClient) AccountExists(ctx context.Context, addr persist.Address) (bool, error) {
	result := struct {
		Value *struct {
			Lamports uint64 `json:"lamports"`
		} `json:"value"`
	}{}
	if err := c.call(ctx, "getAccountInfo", []interface{}{addr.String()}, &result); err != nil {
		return false, err
	}
	return result.Value != nil, nil
}

// GetBalance returns the lamport balance of the given address
func (c *RPCClient) GetBalance(ctx context.Context, addr persist.Address) (uint64, error) {
	result := struct {
		Value uint64 `json:"value"`
	}{}
	if err := c.call(ctx, "getBalance", []interface{}{addr.String()}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash returns the node's latest blockhash
func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	result := struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}{}
	if err := c.call(ctx, "getLatestBlockhash", []interface{}{}, &result); err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

// Submit sends a fully signed transaction to the chain, returning its hash
func (c *RPCClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	var txHash string
	encoded := base64.StdEncoding.EncodeToString(signedTx)
	if err := c.call(ctx, "sendTransaction", []interface{}{encoded, map[string]string{"encoding": "base64"}}, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// GetConfirmationStatus returns how far the given transaction has progressed
func (c *RPCClient) GetConfirmationStatus(ctx context.Context, txHash string) (ConfirmationStatus, error) {
	result := struct {
		Value []*struct {
			ConfirmationStatus ConfirmationStatus `json:"confirmationStatus"`
		} `json:"value"`
	}{}
	if err := c.call(ctx, "getSignatureStatuses", []interface{}{[]string{txHash}}, &result); err != nil {
		return ConfirmationStatusNone, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return ConfirmationStatusNone, nil
	}
	return result.Value[0].ConfirmationStatus, nil
}
