package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tron-wallet-core/pkg/bip32"
	"tron-wallet-core/pkg/bip39"
	"tron-wallet-core/pkg/keystore"
	"tron-wallet-core/pkg/signer"
)

var (
	newOutput string
	newCount  uint32
	newLight  bool
)

// newCmd 代表 new 命令
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建一个新的钱包",
	Long:  `生成 24 个单词的 BIP-39 助记词，加密保存为 Keystore，并显示 BIP-44 (m/44'/195'/0'/0/i) 派生的 TRON 地址。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(newOutput); err == nil {
			return fmt.Errorf("%s 已存在，拒绝覆盖", newOutput)
		}

		// 1. 生成助记词
		mnemonic, err := bip39.NewMnemonicService().GenerateMnemonic(256)
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}

		// 2. 设置密码并加密保存
		pw, err := readPassword("设置 Keystore 密码: ")
		if err != nil {
			return err
		}
		if os.Getenv(PasswordEnv) == "" {
			again, err := readPassword("再次输入密码: ")
			if err != nil {
				return err
			}
			if again != pw {
				return fmt.Errorf("两次输入的密码不一致")
			}
		}

		scryptN := keystore.StandardScryptN
		if newLight {
			scryptN = keystore.LightScryptN
		}
		enc, err := keystore.Encrypt(keystore.KindMnemonic, mnemonic, pw, scryptN)
		if err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}

		// 3. 派生地址
		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		fmt.Println("---------------------------------------------------")
		for i := uint32(0); i < newCount; i++ {
			key, err := keyFromMnemonic(mnemonic, i)
			if err != nil {
				return err
			}
			if i == 0 {
				enc.Address = key.Address()
			}
			fmt.Printf("TRON Address [%s]: %s\n", bip32.TronPath(0, i), key.Address())
			key.Destroy()
		}

		if err := enc.SaveToFile(newOutput); err != nil {
			return fmt.Errorf("保存 Keystore 失败: %w", err)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("Keystore 已保存到: %s\n", newOutput)
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该钱包的所有资产。")
		return nil
	},
}

var importKeyCmd = &cobra.Command{
	Use:   "import-key",
	Short: "将单个 hex 私钥加密导入为 Keystore",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(newOutput); err == nil {
			return fmt.Errorf("%s 已存在，拒绝覆盖", newOutput)
		}
		hexKey, err := readSecret("请输入 hex 私钥: ")
		if err != nil {
			return err
		}
		key, err := signer.LoadPrivateKey(hexKey)
		if err != nil {
			return err
		}
		defer key.Destroy()

		pw, err := readPassword("设置 Keystore 密码: ")
		if err != nil {
			return err
		}
		enc, err := keystore.EncryptPrivateKey(hexKey, key.Address(), pw)
		if err != nil {
			return err
		}
		if err := enc.SaveToFile(newOutput); err != nil {
			return err
		}
		fmt.Printf("地址 %s 已保存到: %s\n", key.Address(), newOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd, importKeyCmd)
	for _, c := range []*cobra.Command{newCmd, importKeyCmd} {
		c.Flags().StringVarP(&newOutput, "output", "o", "wallet.json", "Keystore 输出路径")
	}
	newCmd.Flags().Uint32Var(&newCount, "count", 1, "显示的派生地址数量")
	newCmd.Flags().BoolVar(&newLight, "light", false, "使用轻量 scrypt 参数 (仅测试)")
}
