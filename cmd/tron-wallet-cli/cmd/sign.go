package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tron-wallet-core/pkg/signer"
	"tron-wallet-core/pkg/wallet/types"
)

var (
	signInput  string
	signOutput string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "离线签名交易 (Offline Signing)",
	Long:  `读取未签名的交易 JSON 文件（需包含节点返回的 txID），使用 Keystore 进行签名，并输出已签名的交易。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 读取未签名交易
		data, err := os.ReadFile(signInput)
		if err != nil {
			return fmt.Errorf("读取输入文件失败: %w", err)
		}
		var tx types.UnsignedTransaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return fmt.Errorf("解析交易文件失败: %w", err)
		}

		// 显示交易详情供用户确认 (Verify on Screen)
		printUnsigned(&tx)

		// 2. 加载私钥
		key, err := promptKey()
		if err != nil {
			return err
		}
		defer key.Destroy()

		// 3. 签名
		signed, err := signer.Sign(&tx, key)
		if err != nil {
			return fmt.Errorf("签名失败: %w", err)
		}

		// 4. 输出结果
		if err := writeJSON(signOutput, signed); err != nil {
			return fmt.Errorf("保存结果失败: %w", err)
		}
		fmt.Printf("\n✅ 签名成功!\n")
		fmt.Printf("TxID: %s\n", signed.TxID)
		fmt.Printf("已保存到: %s\n", signOutput)
		return nil
	},
}

func printUnsigned(tx *types.UnsignedTransaction) {
	fmt.Println("\n================ 待签名交易 ================")
	fmt.Printf("TxID:       %s\n", tx.TxID)
	fmt.Printf("LocalID:    %s\n", tx.LocalID)
	switch op := tx.RawData.Operation.(type) {
	case types.NativeTransfer:
		fmt.Printf("Type:       %s\n", op.ContractType())
		fmt.Printf("From:       %s\n", op.OwnerAddress)
		fmt.Printf("To:         %s\n", op.ToAddress)
		fmt.Printf("Amount:     %d SUN\n", op.Amount)
	case types.ContractCall:
		fmt.Printf("Type:       %s\n", op.ContractType())
		fmt.Printf("From:       %s\n", op.OwnerAddress)
		fmt.Printf("Contract:   %s\n", op.ContractAddress)
		fmt.Printf("Data:       %s\n", op.Data)
		fmt.Printf("FeeLimit:   %d SUN\n", tx.RawData.FeeLimit)
	}
	fmt.Printf("RefBlock:   %s / %s\n", tx.RawData.RefBlockBytes, tx.RawData.RefBlockHash)
	fmt.Println("============================================")
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&signInput, "input", "i", "unsigned.json", "未签名的交易文件路径")
	signCmd.Flags().StringVarP(&signOutput, "output", "o", "signed.json", "签名后的输出文件路径")
	addKeyFlags(signCmd)
}
