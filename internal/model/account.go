package model

// AccountStatus 接收方账户状态
type AccountStatus struct {
	Address      string `json:"address"`
	Activated    bool   `json:"activated"`
	HasTRX       bool   `json:"has_trx"`
	BalanceSun   int64  `json:"balance_sun"`
	Transactions int64  `json:"transactions"`
}

// Block 最新区块，用于交易引用
type Block struct {
	Number int64  `json:"number"`
	Hash   string `json:"hash"` // 64 位 hex，可带 0x
}

// TxStatus 交易回执
type TxStatus struct {
	TxID        string `json:"txid"`
	Found       bool   `json:"found"`
	Success     bool   `json:"success"`
	BlockNumber int64  `json:"block_number,omitempty"`
	EnergyUsed  int64  `json:"energy_used,omitempty"`
}
