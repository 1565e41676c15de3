package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tron-wallet-core/pkg/bip32"
	"tron-wallet-core/pkg/bip39"
	"tron-wallet-core/pkg/keystore"
	"tron-wallet-core/pkg/signer"
)

// PasswordEnv 非交互环境下的 Keystore 密码
const PasswordEnv = "WALLET_PASSWORD"

var (
	keystoreFile string
	keyIndex     uint32
)

// addKeyFlags 需要私钥的子命令共用
func addKeyFlags(c *cobra.Command) {
	c.Flags().StringVarP(&keystoreFile, "keystore", "k", "wallet.json", "Keystore 文件路径")
	c.Flags().Uint32Var(&keyIndex, "index", 0, "助记词派生序号 m/44'/195'/0'/0/index")
}

// readSecret 总是从终端读取，不回显
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	return string(b), nil
}

// readPassword 优先读环境变量，否则在终端提示输入
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return readSecret(prompt)
}

// loadKey 从 Keystore 解密私钥。助记词类型按 m/44'/195'/0'/0/index 派生。
func loadKey(file string, index uint32, password string) (*signer.Key, error) {
	enc, err := keystore.LoadFromFile(file)
	if err != nil {
		return nil, fmt.Errorf("加载 Keystore 失败: %w", err)
	}
	secret, err := keystore.Decrypt(enc, password)
	if err != nil {
		return nil, fmt.Errorf("解密失败 (密码错误?): %w", err)
	}

	switch enc.Kind {
	case keystore.KindPrivateKey:
		return signer.LoadPrivateKey(secret)
	case keystore.KindMnemonic, "":
		return keyFromMnemonic(secret, index)
	default:
		return nil, fmt.Errorf("不支持的 Keystore 类型 %q", enc.Kind)
	}
}

func keyFromMnemonic(mnemonic string, index uint32) (*signer.Key, error) {
	seed, err := bip39.NewMnemonicService().SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	wallet, err := bip32.NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	priv, err := wallet.DeriveTronKey(0, index)
	if err != nil {
		return nil, err
	}
	return signer.FromBTCEC(priv), nil
}

var errNoKeystore = errors.New("请通过 --keystore 指定 Keystore 文件")

// promptKey 读取密码并加载私钥
func promptKey() (*signer.Key, error) {
	if keystoreFile == "" {
		return nil, errNoKeystore
	}
	pw, err := readPassword("请输入 Keystore 密码以确认签名: ")
	if err != nil {
		return nil, err
	}
	return loadKey(keystoreFile, keyIndex, pw)
}
