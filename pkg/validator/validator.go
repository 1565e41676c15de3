package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/address"
)

var (
	validate *validator.Validate
	initOnce sync.Once
)

// Init 在 gin 默认校验器上注册自定义规则，可重复调用
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validate = v
			_ = v.RegisterValidation("tron_addr", tronAddress)
			_ = v.RegisterValidation("positive_amount", positiveAmount)
		}
	})
}

// tron_addr: T 开头或 41 开头 hex 地址
func tronAddress(fl validator.FieldLevel) bool {
	return address.IsValid(strings.TrimSpace(fl.Field().String()))
}

// positive_amount: 大于 0 的十进制字符串，长度与指数有上限
func positiveAmount(fl validator.FieldLevel) bool {
	d, err := model.ParseAmount(fl.Field().String())
	return err == nil && d.IsPositive()
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			param := e.Param()

			switch tag {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
			case "tron_addr":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的 TRON 地址", field))
			case "positive_amount":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是大于 0 的数字", field))
			case "len":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 长度必须为 %s", field, param))
			case "hexadecimal":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 hex 字符串", field))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, tag))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return "请求参数错误"
}
