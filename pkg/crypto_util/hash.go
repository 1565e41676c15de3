package crypto_util

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Keccak256 计算 Keccak256 哈希（以太坊/TRON 地址派生与函数选择器使用）。
func Keccak256(data ...[]byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}
	return hash.Sum(nil)
}

// SHA256 计算 SHA256 哈希，TRON 的 txID 即 raw_data 的 SHA256。
func SHA256(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}

// CalculateSHA256 计算输入的 SHA256 哈希值 (hex)。
func CalculateSHA256(data []byte) string {
	return hex.EncodeToString(SHA256(data))
}

// CalculateBlake3 计算输入的 Blake3 哈希值 (hex)。
// 用于本地记账 ID，刻意与链上 txID 的算法区分开。
func CalculateBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// MethodSelector 返回函数签名的 4 字节选择器，例如 "transfer(address,uint256)" -> a9059cbb
func MethodSelector(signature string) []byte {
	return Keccak256([]byte(signature))[:4]
}
