package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second
)

// HTTPClient implements ContractReader and WalletBridge over HTTP JSON-RPC 2.0.
// Chain call failures are surfaced to the caller immediately; there is no
// transparent retry, a user-facing flow reports the error and stops.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new EVM JSON-RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC call.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// ethCall executes a read-only contract call and returns the raw hex result.
func (c *HTTPClient) ethCall(ctx context.Context, to, data string) (string, error) {
	params := []interface{}{
		map[string]interface{}{
			"to":   to,
			"data": data,
		},
		"latest",
	}

	var result string
	if err := c.call(ctx, "eth_call", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// Allowance returns the ERC-20 allowance granted by owner to spender.
func (c *HTTPClient) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	ownerArg, err := encodeAddress(owner)
	if err != nil {
		return nil, err
	}
	spenderArg, err := encodeAddress(spender)
	if err != nil {
		return nil, err
	}

	out, err := c.ethCall(ctx, token, encodeCall(selAllowance, ownerArg, spenderArg))
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return decodeUint256(out)
}

// BalanceOf returns the ERC-20 token balance of account.
func (c *HTTPClient) BalanceOf(ctx context.Context, token, account string) (*big.Int, error) {
	accountArg, err := encodeAddress(account)
	if err != nil {
		return nil, err
	}

	out, err := c.ethCall(ctx, token, encodeCall(selBalanceOf, accountArg))
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return decodeUint256(out)
}

// VaultBalance returns the amount the user has deposited into the vault.
func (c *HTTPClient) VaultBalance(ctx context.Context, vaultAddr, user, token string) (*big.Int, error) {
	userArg, err := encodeAddress(user)
	if err != nil {
		return nil, err
	}
	tokenArg, err := encodeAddress(token)
	if err != nil {
		return nil, err
	}

	out, err := c.ethCall(ctx, vaultAddr, encodeCall(selUserBalances, userArg, tokenArg))
	if err != nil {
		return nil, fmt.Errorf("userBalances: %w", err)
	}
	return decodeUint256(out)
}

// Address returns the active wallet account, or empty string when none is
// connected.
func (c *HTTPClient) Address(ctx context.Context) (string, error) {
	var accounts []string
	if err := c.call(ctx, "eth_accounts", nil, &accounts); err != nil {
		return "", fmt.Errorf("eth_accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return accounts[0], nil
}

// ChainID returns the chain the wallet is currently on.
func (c *HTTPClient) ChainID(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_chainId", nil, &result); err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}

	id, ok := new(big.Int).SetString(strings.TrimPrefix(result, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("invalid chain id %q", result)
	}
	return id.Uint64(), nil
}

// SwitchChain asks the wallet to switch to the given chain.
func (c *HTTPClient) SwitchChain(ctx context.Context, chainID uint64) error {
	params := []interface{}{
		map[string]interface{}{
			"chainId": fmt.Sprintf("0x%x", chainID),
		},
	}
	if err := c.call(ctx, "wallet_switchEthereumChain", params, nil); err != nil {
		return fmt.Errorf("switch chain: %w", err)
	}
	return nil
}

// SendTransaction submits a contract write through the wallet and returns
// the transaction hash.
func (c *HTTPClient) SendTransaction(ctx context.Context, from, to, data string) (string, error) {
	params := []interface{}{
		map[string]interface{}{
			"from": from,
			"to":   to,
			"data": data,
		},
	}

	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", params, &txHash); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return txHash, nil
}
