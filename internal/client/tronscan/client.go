// Package tronscan 访问 Tronscan 浏览器 API：账户标签、安全指标与激活状态。
// 每个接口一个显式响应结构和一个适配函数，字段映射集中在本包。
package tronscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/monitor"
)

const (
	apiKeyHeader = "TRON-PRO-API-KEY"

	// maxBodyBytes 单个响应体上限
	maxBodyBytes = 1 << 20
)

const (
	pathAccountV2 = "accountv2"
	pathSecurity  = "security/account/data"
	pathAccount   = "account"
)

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client

	// 每个接口一个熔断器，某个接口故障不影响其他接口
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient 单个接口连续失败 5 次后断开 30 秒，期间该接口请求直接失败
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		timeout:  timeout,
		http:     &http.Client{},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker 按接口名获取或创建熔断器
func (c *Client) breaker(path string) *gobreaker.CircuitBreaker {
	c.mu.RLock()
	cb, ok := c.breakers[path]
	c.mu.RUnlock()
	if ok {
		return cb
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok = c.breakers[path]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tronscan." + path,
		MaxRequests: 3,
		Interval:    2 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	c.breakers[path] = cb
	return cb
}

// BreakerState 返回某个接口熔断器的当前状态，未使用过的接口视为关闭
func (c *Client) BreakerState(path string) gobreaker.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cb, ok := c.breakers[path]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// accountV2Response /accountv2
type accountV2Response struct {
	RedTag       string `json:"redTag"`
	GreyTag      string `json:"greyTag"`
	BlueTag      string `json:"blueTag"`
	PublicTag    string `json:"publicTag"`
	FeedbackRisk bool   `json:"feedbackRisk"`
}

func (r accountV2Response) toTags() risk.AccountTags {
	return risk.AccountTags{
		RedTag:       r.RedTag,
		GreyTag:      r.GreyTag,
		BlueTag:      r.BlueTag,
		PublicTag:    r.PublicTag,
		FeedbackRisk: r.FeedbackRisk,
	}
}

// securityResponse /security/account/data
type securityResponse struct {
	IsBlackList         bool `json:"is_black_list"`
	HasFraudTransaction bool `json:"has_fraud_transaction"`
	FraudTokenCreator   bool `json:"fraud_token_creator"`
	SendAdByMemo        bool `json:"send_ad_by_memo"`
}

func (r securityResponse) toFlags() risk.BehaviorFlags {
	return risk.BehaviorFlags{
		Blacklist:        r.IsBlackList,
		FraudHistory:     r.HasFraudTransaction,
		FakeAssetCreator: r.FraudTokenCreator,
		SpamBehavior:     r.SendAdByMemo,
	}
}

// accountResponse /account
type accountResponse struct {
	Balance      int64 `json:"balance"`
	Transactions int64 `json:"transactions"`
	DateCreated  int64 `json:"date_created"`
	Activated    bool  `json:"activated"`
}

func (r accountResponse) toStatus(addr string) model.AccountStatus {
	return model.AccountStatus{
		Address:      addr,
		Activated:    r.Activated || r.DateCreated > 0 || r.Balance > 0 || r.Transactions > 0,
		HasTRX:       r.Balance > 0,
		BalanceSun:   r.Balance,
		Transactions: r.Transactions,
	}
}

// GetAccountTags 实现 risk.TagSource
func (c *Client) GetAccountTags(ctx context.Context, addr string) (risk.AccountTags, error) {
	var resp accountV2Response
	if err := c.get(ctx, pathAccountV2, url.Values{"address": {addr}}, &resp); err != nil {
		return risk.AccountTags{}, err
	}
	return resp.toTags(), nil
}

// GetAccountBehaviorFlags 实现 risk.BehaviorSource
func (c *Client) GetAccountBehaviorFlags(ctx context.Context, addr string) (risk.BehaviorFlags, error) {
	var resp securityResponse
	if err := c.get(ctx, pathSecurity, url.Values{"address": {addr}}, &resp); err != nil {
		return risk.BehaviorFlags{}, err
	}
	return resp.toFlags(), nil
}

// GetAccountStatus 接收方激活状态
func (c *Client) GetAccountStatus(ctx context.Context, addr string) (model.AccountStatus, error) {
	var resp accountResponse
	if err := c.get(ctx, pathAccount, url.Values{"address": {addr}}, &resp); err != nil {
		return model.AccountStatus{}, err
	}
	return resp.toStatus(addr), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (err error) {
	op := "tronscan." + path
	start := time.Now()
	defer func() { monitor.ObserveUpstream(op, start, err) }()

	body, err := c.breaker(path).Execute(func() (interface{}, error) {
		return c.do(ctx, op, path, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &errno.NetworkError{Op: op, Err: fmt.Errorf("explorer temporarily unavailable: %w", err)}
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return &errno.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errno.Transport(op, c.timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errno.Transport(op, c.timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errno.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	if len(data) > maxBodyBytes {
		return nil, &errno.NetworkError{Op: op, Err: fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)}
	}
	return data, nil
}
