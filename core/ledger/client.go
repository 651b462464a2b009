package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/types/ids"
)

// Op is one of the four custody operations the ledger contract exposes.
type Op string

const (
	OpCreateBatch       Op = "createBatch"
	OpShip              Op = "ship"
	OpReceiveAtPharmacy Op = "receiveAtPharmacy"
	OpMarkSold          Op = "markSold"
)

// SubmissionError covers every way a submission can fail: unreachable
// RPC endpoint, fee/balance rejection, node-side revert, caller timeout.
// Local state must be left untouched when one is returned.
type SubmissionError struct {
	Op  Op
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ledger submission %s failed: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Config carries the node endpoint and fee parameters.
type Config struct {
	RPCURL             string
	ChainID            int64
	Contract           string
	GasLimit           uint64
	MaxFeeGwei         int64
	MaxPriorityFeeGwei int64
	ReceiptTimeout     time.Duration
	ReceiptPoll        time.Duration
}

// Client talks JSON-RPC to the custody ledger node. All submissions from
// the account are serialized through submitMu: nonce fetch and send must
// not interleave between two callers or the second transaction reuses
// the first one's nonce.
type Client struct {
	cfg     Config
	account *Account
	httpc   *http.Client
	rpcID   atomic.Int64

	submitMu sync.Mutex
}

// Dial builds a client and confirms the node is reachable and on the
// expected chain.
func Dial(cfg Config, account *Account) (*Client, error) {
	if cfg.ReceiptPoll == 0 {
		cfg.ReceiptPoll = 500 * time.Millisecond
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 30 * time.Second
	}
	c := &Client{
		cfg:     cfg,
		account: account,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var chainID int64
	if err := c.call(ctx, "pharma_chainId", nil, &chainID); err != nil {
		return nil, fmt.Errorf("could not connect to ledger at %s: %w", cfg.RPCURL, err)
	}
	if chainID != cfg.ChainID {
		return nil, fmt.Errorf("ledger chain id mismatch: node reports %d, configured %d", chainID, cfg.ChainID)
	}
	log.Printf("[LEDGER] connected to %s (chain %d), account %s", cfg.RPCURL, chainID, account.Address)
	return c, nil
}

// Account returns the submitting account's address.
func (c *Client) AccountAddress() string {
	return c.account.Address
}

// txEnvelope is the signed wire form of a custody transaction.
type txEnvelope struct {
	ChainID              int64         `json:"chainId"`
	Nonce                uint64        `json:"nonce"`
	From                 string        `json:"from"`
	Contract             string        `json:"contract"`
	Op                   Op            `json:"op"`
	Args                 []interface{} `json:"args"`
	GasLimit             uint64        `json:"gasLimit"`
	MaxFeePerGas         int64         `json:"maxFeePerGas"`         // wei
	MaxPriorityFeePerGas int64         `json:"maxPriorityFeePerGas"` // wei
}

type signedTx struct {
	Tx        txEnvelope `json:"tx"`
	Signature string     `json:"signature"` // base16 over sha256 of canonical tx JSON
	PublicKey string     `json:"publicKey"`
}

const gwei = 1_000_000_000

// Submit sends one custody transaction and returns its hash once the
// node accepts it into the pending pool. It does not wait for
// confirmation; use SubmitAndWait when the caller needs a receipt.
func (c *Client) Submit(ctx context.Context, op Op, args ...interface{}) (string, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	// Nonce is fetched fresh, including pending transactions, inside the
	// same critical section as the send.
	nonce, err := c.pendingNonce(ctx)
	if err != nil {
		return "", &SubmissionError{Op: op, Err: err}
	}

	env := txEnvelope{
		ChainID:              c.cfg.ChainID,
		Nonce:                nonce,
		From:                 c.account.Address,
		Contract:             c.cfg.Contract,
		Op:                   op,
		Args:                 args,
		GasLimit:             c.cfg.GasLimit,
		MaxFeePerGas:         c.cfg.MaxFeeGwei * gwei,
		MaxPriorityFeePerGas: c.cfg.MaxPriorityFeeGwei * gwei,
	}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return "", &SubmissionError{Op: op, Err: err}
	}
	digest := sha256.Sum256(envBytes)
	stx := signedTx{
		Tx:        env,
		Signature: fmt.Sprintf("%x", c.account.Sign(digest[:])),
		PublicKey: c.account.PublicKeyHex(),
	}

	var txHash string
	if err := c.call(ctx, "pharma_sendTransaction", []interface{}{stx}, &txHash); err != nil {
		return "", &SubmissionError{Op: op, Err: err}
	}
	if _, err := ids.FromHex(txHash); err != nil {
		return "", &SubmissionError{Op: op, Err: fmt.Errorf("node returned malformed tx hash %q", txHash)}
	}
	log.Printf("[LEDGER] tx sent: op=%s nonce=%d hash=%s", op, nonce, txHash)
	return txHash, nil
}

// Receipt is the node's confirmation record for a transaction.
type Receipt struct {
	TxHash      string `json:"txHash"`
	BlockHeight uint64 `json:"blockHeight"`
	Status      string `json:"status"` // "pending", "confirmed" or "failed"
}

// SubmitAndWait submits and then polls for a receipt until the
// configured timeout. A transaction that confirms as failed, or does not
// confirm in time, is a SubmissionError even though it was accepted into
// the pool.
func (c *Client) SubmitAndWait(ctx context.Context, op Op, args ...interface{}) (string, error) {
	txHash, err := c.Submit(ctx, op, args...)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.cfg.ReceiptTimeout)
	for {
		rcpt, found, err := c.receipt(ctx, txHash)
		if err != nil {
			return "", &SubmissionError{Op: op, Err: fmt.Errorf("receipt poll for %s: %w", txHash, err)}
		}
		if found {
			switch rcpt.Status {
			case "confirmed":
				return txHash, nil
			case "failed":
				return "", &SubmissionError{Op: op, Err: fmt.Errorf("transaction %s reverted on chain", txHash)}
			}
		}
		if time.Now().After(deadline) {
			return "", &SubmissionError{Op: op, Err: fmt.Errorf("transaction %s not confirmed within %s", txHash, c.cfg.ReceiptTimeout)}
		}
		select {
		case <-ctx.Done():
			return "", &SubmissionError{Op: op, Err: ctx.Err()}
		case <-time.After(c.cfg.ReceiptPoll):
		}
	}
}

// GetBatch reads the ledger's record for batchID. found=false with a nil
// error means the ledger has no such batch.
func (c *Client) GetBatch(ctx context.Context, batchID string) (BatchView, bool, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "pharma_getBatch", []interface{}{batchID}, &raw); err != nil {
		return BatchView{}, false, err
	}
	return decodeBatchView(raw)
}

func (c *Client) pendingNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	err := c.call(ctx, "pharma_getTransactionCount", []interface{}{c.account.Address, "pending"}, &nonce)
	return nonce, err
}

func (c *Client) receipt(ctx context.Context, txHash string) (Receipt, bool, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "pharma_getTransactionReceipt", []interface{}{txHash}, &raw); err != nil {
		return Receipt{}, false, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Receipt{}, false, nil
	}
	var rcpt Receipt
	if err := json.Unmarshal(raw, &rcpt); err != nil {
		return Receipt{}, false, err
	}
	return rcpt, true, nil
}

// --- JSON-RPC plumbing ---

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

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.rpcID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned HTTP %d", resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
