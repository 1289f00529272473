package wallet

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyWallet holds the gateway's paying key and submits signed transfers to
// a fullnode RPC endpoint. It never declines on its own, so ErrDeclined is
// the domain of interactive providers only.
type KeyWallet struct {
	key        *ecdsa.PrivateKey
	address    common.Address
	network    string
	rpcURL     string
	httpClient *http.Client
}

func NewKeyWallet(privateKeyHex, network, rpcURL string) (*KeyWallet, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}
	return &KeyWallet{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
		network: network,
		rpcURL:  strings.TrimRight(rpcURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (w *KeyWallet) Session() Session {
	return Session{Address: w.address.Hex(), Network: w.network}
}

func (w *KeyWallet) Address() common.Address {
	return w.address
}

type signedSubmission struct {
	Sender    string          `json:"sender"`
	Payload   TransferPayload `json:"payload"`
	Signature string          `json:"signature"`
}

// SignAndSubmitTransaction signs the payload with the gateway key and
// submits it. Exactly one submission per call.
func (w *KeyWallet) SignAndSubmitTransaction(ctx context.Context, payload TransferPayload) (SubmitResult, error) {
	if w.rpcURL == "" {
		return SubmitResult{}, fmt.Errorf("chain rpc url not configured")
	}

	raw, err := json.Marshal(struct {
		Sender  string          `json:"sender"`
		Payload TransferPayload `json:"payload"`
	}{Sender: w.address.Hex(), Payload: payload})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode transaction: %w", err)
	}

	signature, err := crypto.Sign(crypto.Keccak256(raw), w.key)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("sign transaction: %w", err)
	}

	body, err := json.Marshal(signedSubmission{
		Sender:    w.address.Hex(),
		Payload:   payload,
		Signature: hexutil.Encode(signature),
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.rpcURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("read submission response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SubmitResult{}, fmt.Errorf("node rejected transaction (HTTP %d): %s", resp.StatusCode, trimBody(respBody))
	}

	var result SubmitResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return SubmitResult{}, fmt.Errorf("malformed submission response: %w", err)
	}
	if result.Hash == "" {
		return SubmitResult{}, fmt.Errorf("node returned no transaction hash")
	}
	return result, nil
}

func trimBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
