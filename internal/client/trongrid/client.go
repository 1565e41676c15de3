// Package trongrid 封装 TronGrid 全节点 HTTP API：交易创建与广播。
package trongrid

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/monitor"
	"tron-wallet-core/pkg/wallet/types"
)

// APIKeyHeader TronGrid 鉴权头
const APIKeyHeader = "TRON-PRO-API-KEY"

// maxBodyBytes 单个响应体上限
const maxBodyBytes = 1 << 20

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// BroadcastResponse wallet/broadcasttransaction 原始返回
type BroadcastResponse struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createResponse struct {
	types.UnsignedTransaction
	Error string `json:"Error"`
}

type triggerResponse struct {
	Result struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"result"`
	Transaction *types.UnsignedTransaction `json:"transaction"`
}

// CreateTransaction 由节点生成 TransferContract 的规范交易
func (c *Client) CreateTransaction(ctx context.Context, op types.NativeTransfer) (*types.UnsignedTransaction, error) {
	req := map[string]any{
		"owner_address": op.OwnerAddress,
		"to_address":    op.ToAddress,
		"amount":        op.Amount,
		"visible":       true,
	}
	var resp createResponse
	if err := c.post(ctx, "wallet/createtransaction", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &errno.NetworkError{Op: "trongrid.createtransaction", Err: fmt.Errorf("%s", DecodeMessage(resp.Error))}
	}
	if resp.TxID == "" {
		return nil, &errno.NetworkError{Op: "trongrid.createtransaction", Err: fmt.Errorf("response has no txID")}
	}
	tx := resp.UnsignedTransaction
	return &tx, nil
}

// TriggerSmartContract 由节点生成 TriggerSmartContract 的规范交易
func (c *Client) TriggerSmartContract(ctx context.Context, op types.ContractCall, feeLimit int64) (*types.UnsignedTransaction, error) {
	req := map[string]any{
		"owner_address":    op.OwnerAddress,
		"contract_address": op.ContractAddress,
		"data":             op.Data,
		"call_value":       op.CallValue,
		"fee_limit":        feeLimit,
		"visible":          true,
	}
	var resp triggerResponse
	if err := c.post(ctx, "wallet/triggersmartcontract", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Result.Result {
		return nil, &errno.NetworkError{Op: "trongrid.triggersmartcontract", Err: fmt.Errorf("%s", DecodeMessage(resp.Result.Message))}
	}
	if resp.Transaction == nil || resp.Transaction.TxID == "" {
		return nil, &errno.NetworkError{Op: "trongrid.triggersmartcontract", Err: fmt.Errorf("response has no transaction")}
	}
	return resp.Transaction, nil
}

type broadcastRequest struct {
	TxID       string        `json:"txID"`
	RawData    types.RawData `json:"raw_data"`
	RawDataHex string        `json:"raw_data_hex,omitempty"`
	Visible    bool          `json:"visible"`
	Signature  []string      `json:"signature"`
}

// BroadcastTransaction 提交已签名交易，返回节点原始结果，不做重试
func (c *Client) BroadcastTransaction(ctx context.Context, tx *types.SignedTransaction) (*BroadcastResponse, error) {
	req := broadcastRequest{
		TxID:       tx.TxID,
		RawData:    tx.RawData,
		RawDataHex: tx.RawDataHex,
		Visible:    tx.Visible,
		Signature:  tx.Signature,
	}
	var resp BroadcastResponse
	if err := c.post(ctx, "wallet/broadcasttransaction", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) (err error) {
	op := "trongrid." + path[strings.LastIndex(path, "/")+1:]
	start := time.Now()
	defer func() { monitor.ObserveUpstream(op, start, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errno.Transport(op, c.timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return errno.Transport(op, c.timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &errno.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("body: %s", truncate(data))}
	}
	if len(data) > maxBodyBytes {
		return &errno.NetworkError{Op: op, Err: fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &errno.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// DecodeMessage 节点返回的 message 常为 hex 编码的 UTF-8，解码失败时原样返回
func DecodeMessage(msg string) string {
	if msg == "" || len(msg)%2 != 0 {
		return msg
	}
	raw, err := hex.DecodeString(msg)
	if err != nil || !utf8.Valid(raw) {
		return msg
	}
	return string(raw)
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
