package signer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"go.uber.org/zap"

	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/wallet/types"
)

const (
	// SignatureLen r(32) ‖ s(32) ‖ v(1)
	SignatureLen = 65
	digestLen    = 32

	// compactHeaderBase btcec 紧凑签名头字节的基数（未压缩公钥）
	compactHeaderBase = 27
)

var (
	ErrMissingTxID      = errors.New("transaction has no id")
	ErrMissingOperation = errors.New("transaction has no operation")
	ErrKeyMismatch      = errors.New("signing key does not own the transaction")
	ErrNoRecoveryID     = errors.New("no recovery id matches the public key")
)

// Key 签名私钥。String/GoString 只输出地址，私钥永远不出现在日志或返回值里。
type Key struct {
	priv    *btcec.PrivateKey
	address string
}

// LoadPrivateKey 从 64 位 hex 私钥加载，允许 0x 前缀
func LoadPrivateKey(hexKey string) (*Key, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, errno.NewValidation(errno.ErrInvalidKey, "private_key", "<redacted>", "expect 32 bytes hex")
	}
	defer zero(raw)

	// 私钥必须落在 [1, N-1]
	var scalar btcec.ModNScalar
	overflow := scalar.SetByteSlice(raw)
	if overflow || scalar.IsZero() {
		return nil, errno.NewValidation(errno.ErrInvalidKey, "private_key", "<redacted>", "scalar out of range")
	}

	priv, _ := btcec.PrivKeyFromBytes(raw)
	return FromBTCEC(priv), nil
}

// FromBTCEC 包装已有的 btcec 私钥（如 BIP-32 派生结果）
func FromBTCEC(priv *btcec.PrivateKey) *Key {
	return &Key{priv: priv, address: DeriveAddress(priv.PubKey())}
}

// Address 返回私钥对应的 T 开头地址
func (k *Key) Address() string { return k.address }

func (k *Key) String() string   { return "Key(" + k.address + ")" }
func (k *Key) GoString() string { return k.String() }

// Destroy 清零私钥，签名调用结束后执行
func (k *Key) Destroy() {
	if k != nil && k.priv != nil {
		k.priv.Zero()
	}
}

// DeriveAddress 公钥 -> 地址
func DeriveAddress(pub *btcec.PublicKey) string {
	return address.NewTRONGenerator().FromPublicKey(pub)
}

// SignDigest 对 32 字节摘要做 RFC6979 确定性签名，输出 r‖s‖v。
// s 已规范化为 low-S；v 通过逐个尝试恢复并比对已知公钥得到。
func SignDigest(digest []byte, key *Key) ([]byte, error) {
	if len(digest) != digestLen {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", digestLen, len(digest))
	}
	if key == nil || key.priv == nil {
		return nil, errno.ErrInvalidKey
	}

	compact := ecdsa.SignCompact(key.priv, digest, false)
	rs := compact[1:]

	recID, err := findRecoveryID(rs, digest, key.priv.PubKey())
	if err != nil {
		return nil, err
	}

	sig := make([]byte, SignatureLen)
	copy(sig, rs)
	sig[64] = recID
	return sig, nil
}

func findRecoveryID(rs, digest []byte, pub *btcec.PublicKey) (byte, error) {
	want := pub.SerializeUncompressed()
	candidate := make([]byte, SignatureLen)
	copy(candidate[1:], rs)

	for id := byte(0); id < 4; id++ {
		candidate[0] = compactHeaderBase + id
		recovered, _, err := ecdsa.RecoverCompact(candidate, digest)
		if err != nil {
			continue
		}
		if bytes.Equal(recovered.SerializeUncompressed(), want) {
			return id, nil
		}
	}
	return 0, ErrNoRecoveryID
}

// Verify 从签名恢复公钥并与期望地址比对
func Verify(digest, sig []byte, expected string) (bool, error) {
	if len(digest) != digestLen || len(sig) != SignatureLen {
		return false, fmt.Errorf("bad digest or signature length")
	}
	v := sig[64]
	if v >= compactHeaderBase {
		v -= compactHeaderBase
	}
	if v > 3 {
		return false, fmt.Errorf("bad recovery id %d", sig[64])
	}

	compact := make([]byte, SignatureLen)
	compact[0] = compactHeaderBase + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return false, nil
	}
	want, err := address.ToBase58(expected)
	if err != nil {
		return false, err
	}
	return DeriveAddress(pub) == want, nil
}

// SignID 对 64 位 hex 交易 ID 签名，返回 130 位 hex
func SignID(txID string, key *Key) (string, error) {
	digest, err := hex.DecodeString(txID)
	if err != nil || len(digest) != digestLen {
		return "", errno.NewValidation(errno.ErrInvalidTxID, "txID", txID, "expect 64 hex chars")
	}
	sig, err := SignDigest(digest, key)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// Sign 对交易签名。缺少 ID 或操作时在任何密码学运算之前拒绝。
// 若携带 raw_data_hex，则先核对 TxID == sha256(raw_data_hex)。
func Sign(tx *types.UnsignedTransaction, key *Key) (*types.SignedTransaction, error) {
	if tx == nil || tx.TxID == "" {
		return nil, errno.NewValidation(errno.ErrInvalidTransaction, "txID", "", ErrMissingTxID.Error())
	}
	if tx.RawData.Operation == nil {
		return nil, errno.NewValidation(errno.ErrInvalidTransaction, "raw_data.contract", "", ErrMissingOperation.Error())
	}
	if key == nil {
		return nil, errno.ErrInvalidKey
	}

	if tx.RawDataHex != "" {
		raw, err := hex.DecodeString(tx.RawDataHex)
		if err != nil {
			return nil, errno.NewValidation(errno.ErrInvalidTransaction, "raw_data_hex", "", "malformed hex")
		}
		if !strings.EqualFold(crypto_util.CalculateSHA256(raw), tx.TxID) {
			return nil, errno.NewValidation(errno.ErrInvalidTransaction, "txID", tx.TxID, "does not match raw_data_hex")
		}
	}

	owner, err := address.ToBase58(tx.RawData.Operation.Sender())
	if err != nil {
		return nil, err
	}
	if owner != key.Address() {
		return nil, ErrKeyMismatch
	}

	sig, err := SignID(tx.TxID, key)
	if err != nil {
		return nil, err
	}

	logger.Info("交易签名完成",
		zap.String("txid", tx.TxID),
		zap.String("signer", key.Address()),
	)

	return &types.SignedTransaction{
		UnsignedTransaction: *tx,
		Signature:           []string{sig},
	}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
