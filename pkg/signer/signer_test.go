package signer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/wallet/types"
)

const (
	keyOne     = "0000000000000000000000000000000000000000000000000000000000000001"
	keyOneAddr = "TMVQGm1qAQYVdetCeGRRkTWYYrLXuHK2HC"

	keyTwo     = "e8135b91771671df0b9cc9a40137660a47b9babf7539b7c55756dd6816de5f4e"
	keyTwoAddr = "TFwpzzQoGTJW4hUhGKKUZe4wSVCgyMoodZ"

	sampleTxID = "9a4e7f5c1d3b2a8e6f0c4d2b1a3e5f7c9d8b6a4e2c0f1d3b5a7e9c8d6b4a2e0f"
)

func TestDeriveAddress(t *testing.T) {
	tests := []struct {
		priv string
		want string
	}{
		{keyOne, keyOneAddr},
		{keyTwo, keyTwoAddr},
		{"0x" + keyTwo, keyTwoAddr},
	}

	for _, tt := range tests {
		key, err := LoadPrivateKey(tt.priv)
		require.NoError(t, err)
		assert.Equal(t, tt.want, key.Address())
	}
}

func TestDeriveAddressMatchesEthereumBody(t *testing.T) {
	// TRON 地址体与以太坊地址同源：keccak(pubkey)[12:]
	ethKey, err := crypto.HexToECDSA(keyTwo)
	require.NoError(t, err)
	ethAddr := crypto.PubkeyToAddress(ethKey.PublicKey)

	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	body, err := address.ToHexNoPrefix(key.Address())
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(ethAddr.Hex()[2:]), body)
}

func TestLoadPrivateKeyRejectsBadInput(t *testing.T) {
	bad := []string{
		"",
		"zz",
		keyOne[:62],
		"0000000000000000000000000000000000000000000000000000000000000000",
		// 曲线阶 N
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
	}
	for _, in := range bad {
		_, err := LoadPrivateKey(in)
		if !errors.Is(err, errno.ErrInvalidKey) {
			t.Errorf("输入 %q 应返回 ErrInvalidKey, 实际 %v", in, err)
		}
	}
}

func TestKeyNeverPrintsSecret(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	for _, out := range []string{
		key.String(),
		fmt.Sprintf("%v", key),
		fmt.Sprintf("%+v", key),
		fmt.Sprintf("%#v", key),
	} {
		assert.NotContains(t, out, keyTwo)
		assert.Contains(t, out, keyTwoAddr)
	}
}

func TestSignDeterministic(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	sig1, err := SignID(sampleTxID, key)
	require.NoError(t, err)
	sig2, err := SignID(sampleTxID, key)
	require.NoError(t, err)

	assert.Len(t, sig1, 130)
	assert.Equal(t, sig1, sig2, "相同输入必须得到相同签名")

	otherID := strings.Repeat("ab", 32)
	sig3, err := SignID(otherID, key)
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig3, "不同 ID 签名必须不同")
}

func TestSignMatchesGoEthereum(t *testing.T) {
	digest, _ := hex.DecodeString(sampleTxID)

	for _, priv := range []string{keyOne, keyTwo} {
		key, err := LoadPrivateKey(priv)
		require.NoError(t, err)
		ours, err := SignDigest(digest, key)
		require.NoError(t, err)

		ethKey, err := crypto.HexToECDSA(priv)
		require.NoError(t, err)
		theirs, err := crypto.Sign(digest, ethKey)
		require.NoError(t, err)

		assert.Equal(t, hex.EncodeToString(theirs), hex.EncodeToString(ours))
	}
}

func TestSignRecoveryAndVerify(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	digest := crypto_util.SHA256([]byte("recovery"))
	sig, err := SignDigest(digest, key)
	require.NoError(t, err)
	assert.LessOrEqual(t, sig[64], byte(1))

	pub, err := crypto.SigToPub(digest, sig)
	require.NoError(t, err)
	body, err := address.ToHexNoPrefix(keyTwoAddr)
	require.NoError(t, err)
	assert.Equal(t, body, strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()[2:]))

	ok, err := Verify(digest, sig, keyTwoAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(digest, sig, keyOneAddr)
	require.NoError(t, err)
	assert.False(t, ok)

	// 27/28 形式的 v 同样可以验证
	alt := append([]byte(nil), sig...)
	alt[64] += 27
	ok, err = Verify(digest, alt, keyTwoAddr)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignTransaction(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	rawHex := "0a02abcd2208000102030405060740e0a7b4b3a531"
	raw, _ := hex.DecodeString(rawHex)

	tx := &types.UnsignedTransaction{
		TxID:       crypto_util.CalculateSHA256(raw),
		LocalID:    "local",
		RawDataHex: rawHex,
		RawData: types.RawData{
			Operation: types.NativeTransfer{
				OwnerAddress: keyTwoAddr,
				ToAddress:    keyOneAddr,
				Amount:       1_000_000,
			},
		},
	}

	signed, err := Sign(tx, key)
	require.NoError(t, err)
	require.Len(t, signed.Signature, 1)
	assert.Len(t, signed.Signature[0], 130)
	assert.Equal(t, tx.TxID, signed.TxID)

	digest, _ := hex.DecodeString(tx.TxID)
	sig, _ := hex.DecodeString(signed.Signature[0])
	ok, err := Verify(digest, sig, keyTwoAddr)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignRejectsIncompleteTransaction(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)

	op := types.NativeTransfer{OwnerAddress: keyTwoAddr, ToAddress: keyOneAddr, Amount: 1}

	tests := []struct {
		name string
		tx   *types.UnsignedTransaction
		want error
	}{
		{"nil", nil, errno.ErrInvalidTransaction},
		{"no id", &types.UnsignedTransaction{RawData: types.RawData{Operation: op}}, errno.ErrInvalidTransaction},
		{"no operation", &types.UnsignedTransaction{TxID: sampleTxID}, errno.ErrInvalidTransaction},
		{"id mismatch", &types.UnsignedTransaction{TxID: sampleTxID, RawDataHex: "00", RawData: types.RawData{Operation: op}}, errno.ErrInvalidTransaction},
		{"wrong owner", &types.UnsignedTransaction{TxID: sampleTxID, RawData: types.RawData{Operation: types.NativeTransfer{OwnerAddress: keyOneAddr, ToAddress: keyTwoAddr, Amount: 1}}}, ErrKeyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sign(tt.tx, key)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDestroyZeroesKey(t *testing.T) {
	key, err := LoadPrivateKey(keyTwo)
	require.NoError(t, err)
	key.Destroy()
	assert.True(t, key.priv.Key.IsZero())
}
