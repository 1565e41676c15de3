package request

// BuildTransferRequest 构建未签名转账。服务端不接收私钥，签名在客户端完成。
type BuildTransferRequest struct {
	From           string `json:"from" binding:"required,tron_addr"`
	To             string `json:"to" binding:"required,tron_addr"`
	Amount         string `json:"amount" binding:"required,positive_amount"`
	Token          string `json:"token"`
	ForceExecution bool   `json:"force_execution"`
}

// TxIDUri 交易查询路径参数
type TxIDUri struct {
	TxID string `uri:"txid" binding:"required,len=64,hexadecimal"`
}

// AddressUri 账户路径参数
type AddressUri struct {
	Address string `uri:"address" binding:"required,tron_addr"`
}
