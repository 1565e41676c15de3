package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 返回替换了提示信息的副本，错误码不变
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var (
		validation   *ValidationError
		insufficient *InsufficientBalanceError
		timeout      *TimeoutError
		network      *NetworkError
		broadcast    *BroadcastError
	)

	switch {
	case errors.As(err, &validation):
		return validation.Kind.Code, validation.Error()
	case errors.As(err, &insufficient):
		return ErrInsufficientBalance.Code, insufficient.Error()
	case errors.As(err, &timeout):
		return ErrUpstreamTimeout.Code, timeout.Error()
	case errors.As(err, &network):
		return ErrUpstream.Code, network.Error()
	case errors.As(err, &broadcast):
		return ErrBroadcastRejected.Code, broadcast.Error()
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrUpstream         = Errno{Code: 10005, Message: "Upstream service error"}
	ErrUpstreamTimeout  = Errno{Code: 10006, Message: "Upstream service timeout"}
)

// Business Errors (20000+)
var (
	ErrInvalidAddress      = Errno{Code: 20101, Message: "invalid address"}
	ErrInvalidAmount       = Errno{Code: 20102, Message: "invalid amount"}
	ErrInvalidToken        = Errno{Code: 20103, Message: "invalid token"}
	ErrInvalidTxID         = Errno{Code: 20104, Message: "invalid txid"}
	ErrInvalidTransaction  = Errno{Code: 20105, Message: "invalid transaction"}
	ErrInvalidKey          = Errno{Code: 20106, Message: "invalid private key"}
	ErrInsufficientBalance = Errno{Code: 20201, Message: "insufficient balance"}
	ErrTransferInProgress  = Errno{Code: 20202, Message: "another transfer from this sender is in progress"}
	ErrRiskBlocked         = Errno{Code: 20301, Message: "transfer blocked by risk policy"}
	ErrBroadcastRejected   = Errno{Code: 20401, Message: "broadcast rejected"}
	ErrTxNotFound          = Errno{Code: 20402, Message: "transaction not found or not confirmed"}
)
