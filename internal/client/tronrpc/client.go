// Package tronrpc TRON 节点的以太坊兼容 JSON-RPC 接口
package tronrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/monitor"
)

var balanceOfSelector = crypto_util.MethodSelector("balanceOf(address)")

// ErrBlockNotFound 节点没有返回区块
var ErrBlockNotFound = errors.New("latest block not available")

type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// Dial 建立 HTTP JSON-RPC 客户端。apiKey 非空时附带 TRON-PRO-API-KEY
func Dial(ctx context.Context, url, apiKey string, timeout time.Duration) (*Client, error) {
	var opts []rpc.ClientOption
	if apiKey != "" {
		opts = append(opts, rpc.WithHeader("TRON-PRO-API-KEY", apiKey))
	}
	c, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial jsonrpc %s: %w", url, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{rpc: c, timeout: timeout}, nil
}

func (c *Client) Close() { c.rpc.Close() }

// call 每次调用单独设置超时，超时与其他网络错误分开归类
func (c *Client) call(ctx context.Context, result any, method string, args ...any) (err error) {
	start := time.Now()
	defer func() { monitor.ObserveUpstream("jsonrpc."+method, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return errno.Transport(method, c.timeout, err)
	}
	return nil
}

func evmAddress(addr string) (common.Address, error) {
	p, err := address.Decode(addr)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(p.Bytes20()), nil
}

// GetNativeBalance TRX 余额，单位 SUN
func (c *Client) GetNativeBalance(ctx context.Context, addr string) (*big.Int, error) {
	a, err := evmAddress(addr)
	if err != nil {
		return nil, err
	}
	var res hexutil.Big
	if err := c.call(ctx, &res, "eth_getBalance", a, "latest"); err != nil {
		return nil, err
	}
	return (*big.Int)(&res), nil
}

// GetTokenBalance TRC20 balanceOf，返回最小单位
func (c *Client) GetTokenBalance(ctx context.Context, addr, contract string) (*big.Int, error) {
	owner, err := evmAddress(addr)
	if err != nil {
		return nil, err
	}
	to, err := evmAddress(contract)
	if err != nil {
		return nil, err
	}

	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	msg := map[string]any{
		"to":   to,
		"data": hexutil.Bytes(data),
	}

	var res hexutil.Bytes
	if err := c.call(ctx, &res, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, &errno.NetworkError{Op: "eth_call", Err: fmt.Errorf("empty balanceOf result from %s", contract)}
	}
	return new(big.Int).SetBytes(res), nil
}

type blockHeader struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   string         `json:"hash"`
}

// LatestBlock 最新区块号与哈希
func (c *Client) LatestBlock(ctx context.Context) (model.Block, error) {
	var head *blockHeader
	if err := c.call(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return model.Block{}, err
	}
	if head == nil || head.Hash == "" {
		return model.Block{}, &errno.NetworkError{Op: "eth_getBlockByNumber", Err: ErrBlockNotFound}
	}
	return model.Block{Number: int64(head.Number), Hash: head.Hash}, nil
}

// BlockNumber 当前区块高度
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	var res hexutil.Uint64
	if err := c.call(ctx, &res, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return int64(res), nil
}

// GasPrice 当前能量单价（SUN）
func (c *Client) GasPrice(ctx context.Context) (int64, error) {
	var res hexutil.Big
	if err := c.call(ctx, &res, "eth_gasPrice"); err != nil {
		return 0, err
	}
	return (*big.Int)(&res).Int64(), nil
}

type receipt struct {
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// TransactionStatus 交易回执。未上链时 Found=false
func (c *Client) TransactionStatus(ctx context.Context, txID string) (model.TxStatus, error) {
	id := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(txID)), "0x")
	if len(id) != 64 {
		return model.TxStatus{}, errno.NewValidation(errno.ErrInvalidTxID, "txid", txID, "expect 64 hex chars")
	}
	if _, err := hexutil.Decode("0x" + id); err != nil {
		return model.TxStatus{}, errno.NewValidation(errno.ErrInvalidTxID, "txid", txID, "malformed hex")
	}

	var r *receipt
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", "0x"+id); err != nil {
		return model.TxStatus{}, err
	}
	if r == nil {
		return model.TxStatus{TxID: id}, nil
	}
	return model.TxStatus{
		TxID:        id,
		Found:       true,
		Success:     r.Status == 1,
		BlockNumber: int64(r.BlockNumber),
		EnergyUsed:  int64(r.GasUsed),
	}, nil
}
