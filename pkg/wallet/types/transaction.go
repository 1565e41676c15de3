package types

import (
	"encoding/json"
	"fmt"

	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/errno"
)

// 合约类型，与链上 raw_data.contract[].type 一致
const (
	ContractTransfer     = "TransferContract"
	ContractTriggerSmart = "TriggerSmartContract"

	typeURLPrefix = "type.googleapis.com/protocol."
)

// Operation 是交易携带的操作，只有 NativeTransfer 和 ContractCall 两种
type Operation interface {
	// ContractType 返回链上合约类型名
	ContractType() string
	// Sender 返回发起方地址
	Sender() string
	// Validate 校验操作可编码
	Validate() error

	isOperation()
}

// NativeTransfer TRX 原生转账
type NativeTransfer struct {
	OwnerAddress string `json:"owner_address"`
	ToAddress    string `json:"to_address"`
	Amount       int64  `json:"amount"` // SUN
}

func (NativeTransfer) ContractType() string { return ContractTransfer }
func (n NativeTransfer) Sender() string     { return n.OwnerAddress }
func (NativeTransfer) isOperation()         {}

func (n NativeTransfer) Validate() error {
	if !address.IsValid(n.OwnerAddress) {
		return errno.NewValidation(errno.ErrInvalidAddress, "owner_address", n.OwnerAddress, "")
	}
	if !address.IsValid(n.ToAddress) {
		return errno.NewValidation(errno.ErrInvalidAddress, "to_address", n.ToAddress, "")
	}
	if n.Amount <= 0 {
		return errno.NewValidation(errno.ErrInvalidAmount, "amount", fmt.Sprint(n.Amount), "must be positive")
	}
	return nil
}

// ContractCall 智能合约调用（TRC20 transfer）
type ContractCall struct {
	OwnerAddress    string `json:"owner_address"`
	ContractAddress string `json:"contract_address"`
	Data            string `json:"data"` // hex 编码的调用数据，不带 0x
	CallValue       int64  `json:"call_value,omitempty"`
}

func (ContractCall) ContractType() string { return ContractTriggerSmart }
func (c ContractCall) Sender() string     { return c.OwnerAddress }
func (ContractCall) isOperation()         {}

func (c ContractCall) Validate() error {
	if !address.IsValid(c.OwnerAddress) {
		return errno.NewValidation(errno.ErrInvalidAddress, "owner_address", c.OwnerAddress, "")
	}
	if !address.IsValid(c.ContractAddress) {
		return errno.NewValidation(errno.ErrInvalidAddress, "contract_address", c.ContractAddress, "")
	}
	// 4 字节选择器 + 至少一个 32 字节参数
	if len(c.Data) < 8+64 || len(c.Data)%2 != 0 {
		return errno.NewValidation(errno.ErrInvalidTransaction, "data", c.Data, "malformed call data")
	}
	return nil
}

// RawData 交易主体
type RawData struct {
	RefBlockBytes string    `json:"ref_block_bytes"`
	RefBlockHash  string    `json:"ref_block_hash"`
	Expiration    int64     `json:"expiration"`
	Timestamp     int64     `json:"timestamp"`
	FeeLimit      int64     `json:"fee_limit,omitempty"`
	Operation     Operation `json:"-"`
}

// UnsignedTransaction 待签名交易。
// LocalID 只用于本地记账；TxID 与 RawDataHex 来自权威节点返回的规范序列化，签名只针对 TxID。
type UnsignedTransaction struct {
	TxID       string  `json:"txID,omitempty"`
	LocalID    string  `json:"local_id"`
	RawData    RawData `json:"raw_data"`
	RawDataHex string  `json:"raw_data_hex,omitempty"`
	Visible    bool    `json:"visible"`
}

// SignedTransaction 已签名交易，Signature 恰好一项（130 位 hex）
type SignedTransaction struct {
	UnsignedTransaction
	Signature []string `json:"signature"`
}

// --- JSON 编解码，与 TronGrid 的 raw_data 结构保持一致 ---

type contractJSON struct {
	Parameter struct {
		Value   json.RawMessage `json:"value"`
		TypeURL string          `json:"type_url"`
	} `json:"parameter"`
	Type string `json:"type"`
}

type rawDataJSON struct {
	Contract      []contractJSON `json:"contract"`
	RefBlockBytes string         `json:"ref_block_bytes"`
	RefBlockHash  string         `json:"ref_block_hash"`
	Expiration    int64          `json:"expiration"`
	Timestamp     int64          `json:"timestamp"`
	FeeLimit      int64          `json:"fee_limit,omitempty"`
}

func (r RawData) MarshalJSON() ([]byte, error) {
	out := rawDataJSON{
		Contract:      []contractJSON{},
		RefBlockBytes: r.RefBlockBytes,
		RefBlockHash:  r.RefBlockHash,
		Expiration:    r.Expiration,
		Timestamp:     r.Timestamp,
		FeeLimit:      r.FeeLimit,
	}
	if r.Operation != nil {
		value, err := json.Marshal(r.Operation)
		if err != nil {
			return nil, err
		}
		var c contractJSON
		c.Type = r.Operation.ContractType()
		c.Parameter.Value = value
		c.Parameter.TypeURL = typeURLPrefix + c.Type
		out.Contract = append(out.Contract, c)
	}
	return json.Marshal(out)
}

func (r *RawData) UnmarshalJSON(data []byte) error {
	var in rawDataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.RefBlockBytes = in.RefBlockBytes
	r.RefBlockHash = in.RefBlockHash
	r.Expiration = in.Expiration
	r.Timestamp = in.Timestamp
	r.FeeLimit = in.FeeLimit
	r.Operation = nil

	if len(in.Contract) == 0 {
		return nil
	}
	if len(in.Contract) > 1 {
		return fmt.Errorf("unsupported contract count %d", len(in.Contract))
	}

	c := in.Contract[0]
	switch c.Type {
	case ContractTransfer:
		var op NativeTransfer
		if err := json.Unmarshal(c.Parameter.Value, &op); err != nil {
			return fmt.Errorf("decode %s: %w", c.Type, err)
		}
		r.Operation = op
	case ContractTriggerSmart:
		var op ContractCall
		if err := json.Unmarshal(c.Parameter.Value, &op); err != nil {
			return fmt.Errorf("decode %s: %w", c.Type, err)
		}
		r.Operation = op
	default:
		return fmt.Errorf("unsupported contract type %q", c.Type)
	}
	return nil
}
