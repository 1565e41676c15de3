package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"tron-wallet-core/pkg/crypto_util"
)

// TRONGenerator TRON 地址生成器
type TRONGenerator struct{}

func NewTRONGenerator() *TRONGenerator {
	return &TRONGenerator{}
}

// PubKeyToAddress 将公钥字节（压缩 33 字节或非压缩 65 字节）转换为 T 开头的地址
func (g *TRONGenerator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return "", fmt.Errorf("解析公钥失败: %v", err)
	}
	return g.FromPublicKey(pub), nil
}

// FromPublicKey keccak256(去掉 0x04 的非压缩公钥) 取后 20 字节，补 41 前缀后做 Base58Check
func (g *TRONGenerator) FromPublicKey(pub *btcec.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()
	hash := crypto_util.Keccak256(uncompressed[1:])

	var p Payload
	p[0] = PrefixByte
	copy(p[1:], hash[12:])
	return Encode(p)
}
