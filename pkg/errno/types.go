package errno

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError 调用方参数错误，永不重试
type ValidationError struct {
	Kind   Errno  // ErrInvalidAddress / ErrInvalidAmount / ErrInvalidToken ...
	Field  string // 出错的参数名，例如 "to"
	Value  string
	Reason string
}

// NewValidation 构造一个参数校验错误
func NewValidation(kind Errno, field, value, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s=%q)", msg, e.Field, e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap 让 errors.Is(err, errno.ErrInvalidAddress) 成立
func (e *ValidationError) Unwrap() error { return e.Kind }

// Code 返回机器可读的错误码
func (e *ValidationError) Code() string {
	return strings.ReplaceAll(e.Kind.Message, " ", "_")
}

// 余额不足错误码
const (
	CodeInsufficientToken        = "insufficient_token"
	CodeInsufficientNative       = "insufficient_native"
	CodeInsufficientNativeForFee = "insufficient_native_for_fee"
)

// Shortfall 描述一项具体的余额缺口
type Shortfall struct {
	Code      string          `json:"code"`
	Asset     string          `json:"asset"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Message   string          `json:"message"`
}

// InsufficientBalanceError 经济前置条件不满足，不自动重试。
// Code / Required / Available 取第一项缺口，Shortfalls 列出全部缺口。
type InsufficientBalanceError struct {
	Code       string                     `json:"code"`
	Asset      string                     `json:"asset"`
	Required   decimal.Decimal            `json:"required"`
	Available  decimal.Decimal            `json:"available"`
	Shortfalls []Shortfall                `json:"shortfalls"`
	Balances   map[string]decimal.Decimal `json:"balances,omitempty"`
}

// NewInsufficientBalance 由缺口列表构造错误，shortfalls 不能为空
func NewInsufficientBalance(shortfalls []Shortfall, balances map[string]decimal.Decimal) *InsufficientBalanceError {
	first := shortfalls[0]
	return &InsufficientBalanceError{
		Code:       first.Code,
		Asset:      first.Asset,
		Required:   first.Required,
		Available:  first.Available,
		Shortfalls: shortfalls,
		Balances:   balances,
	}
}

func (e *InsufficientBalanceError) Error() string {
	msgs := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		msgs = append(msgs, s.Message)
	}
	return "transfer rejected: " + strings.Join(msgs, "; ")
}

// Is 让 errors.Is(err, errno.ErrInsufficientBalance) 成立
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// NetworkError 外部服务调用失败（非超时）
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError 外部服务调用超时，与 NetworkError 区分以便调用方分支处理
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// BroadcastError 中继节点拒绝交易
type BroadcastError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RawMessage string `json:"raw_message,omitempty"`
	TxID       string `json:"txid,omitempty"`
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed [%s]: %s", e.Code, e.Message)
}

// Transport 将底层传输错误归类为 TimeoutError 或 NetworkError。
// 已经归类过的错误原样返回。
func Transport(op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	var (
		t *TimeoutError
		n *NetworkError
	)
	if errors.As(err, &t) || errors.As(err, &n) {
		return err
	}
	if IsTimeout(err) {
		return &TimeoutError{Op: op, Timeout: timeout, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

// IsTimeout 判断错误链中是否包含超时
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var t *TimeoutError
	if errors.As(err, &t) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
