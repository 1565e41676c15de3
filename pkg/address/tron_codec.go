package address

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"

	"tron-wallet-core/pkg/errno"
)

const (
	// PrefixByte TRON 主网/测试网地址统一的版本字节
	PrefixByte byte = 0x41

	// PayloadLen = 1 字节版本 + 20 字节地址
	PayloadLen = 21
)

var (
	base58Pattern = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	hexPattern    = regexp.MustCompile(`^(0x)?41[0-9a-fA-F]{40}$`)
)

// Payload 是地址的原始 21 字节表示
type Payload [PayloadLen]byte

// Hex 返回带 41 前缀的 42 位 hex
func (p Payload) Hex() string {
	return hex.EncodeToString(p[:])
}

// Bytes20 去掉版本字节，返回 20 字节账户体
func (p Payload) Bytes20() []byte {
	out := make([]byte, PayloadLen-1)
	copy(out, p[1:])
	return out
}

// Decode 解析 Base58Check (T...) 或 hex (41... / 0x41...) 两种格式，
// 两种格式解析出的 Payload 必须一致。
func Decode(addr string) (Payload, error) {
	var p Payload
	addr = strings.TrimSpace(addr)

	switch {
	case base58Pattern.MatchString(addr):
		body, version, err := base58.CheckDecode(addr)
		if err != nil {
			return p, errno.NewValidation(errno.ErrInvalidAddress, "address", addr, "checksum mismatch")
		}
		if version != PrefixByte {
			return p, errno.NewValidation(errno.ErrInvalidAddress, "address", addr, "unexpected version byte")
		}
		if len(body) != PayloadLen-1 {
			return p, errno.NewValidation(errno.ErrInvalidAddress, "address", addr, "wrong payload length")
		}
		p[0] = version
		copy(p[1:], body)
		return p, nil

	case hexPattern.MatchString(addr):
		raw, err := hex.DecodeString(strings.TrimPrefix(addr, "0x"))
		if err != nil {
			return p, errno.NewValidation(errno.ErrInvalidAddress, "address", addr, "malformed hex")
		}
		copy(p[:], raw)
		return p, nil
	}

	return p, errno.NewValidation(errno.ErrInvalidAddress, "address", addr, "pattern mismatch")
}

// Encode 将 21 字节 Payload 编码为 Base58Check 文本地址
func Encode(p Payload) string {
	return base58.CheckEncode(p[1:], p[0])
}

// FromBytes20 由 20 字节账户体构造 Payload（补上 41 版本字节）
func FromBytes20(b []byte) (Payload, error) {
	var p Payload
	if len(b) != PayloadLen-1 {
		return p, errno.NewValidation(errno.ErrInvalidAddress, "address", hex.EncodeToString(b), "wrong payload length")
	}
	p[0] = PrefixByte
	copy(p[1:], b)
	return p, nil
}

// ToBase58 将任意合法格式规范化为 T 开头的文本地址
func ToBase58(addr string) (string, error) {
	p, err := Decode(addr)
	if err != nil {
		return "", err
	}
	return Encode(p), nil
}

// ToHex 返回带 41 前缀的 42 位 hex，用于中继节点请求
func ToHex(addr string) (string, error) {
	p, err := Decode(addr)
	if err != nil {
		return "", err
	}
	return p.Hex(), nil
}

// ToHexNoPrefix 返回去掉版本字节的 40 位 hex，用于合约调用数据
func ToHexNoPrefix(addr string) (string, error) {
	p, err := Decode(addr)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(p[1:]), nil
}

// IsValid 校验地址格式与校验和
func IsValid(addr string) bool {
	_, err := Decode(addr)
	return err == nil
}
