package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tron-wallet-core/pkg/errno"
)

// Response defines the standard JSON structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error returns an error response. 结构化错误的详细字段放在 data 中
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    details(err),
	})
}

func details(err error) interface{} {
	var (
		insufficient *errno.InsufficientBalanceError
		broadcast    *errno.BroadcastError
		validation   *errno.ValidationError
		timeout      *errno.TimeoutError
	)
	switch {
	case errors.As(err, &insufficient):
		return insufficient
	case errors.As(err, &broadcast):
		return broadcast
	case errors.As(err, &validation):
		return gin.H{"code": validation.Code(), "field": validation.Field, "reason": validation.Reason}
	case errors.As(err, &timeout):
		return gin.H{"code": "timeout", "op": timeout.Op}
	}
	return gin.H{}
}
