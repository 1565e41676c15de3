package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tron-wallet-core/pkg/wallet/types"
)

var broadcastInput string

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "广播已签名的交易 (Online)",
	Long:  `读取已签名的交易文件 (Signed Tx)，并广播到 TRON 网络。失败不会自动重试。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(broadcastInput)
		if err != nil {
			return fmt.Errorf("读取文件失败: %w", err)
		}
		var tx types.SignedTransaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return fmt.Errorf("解析交易文件失败: %w", err)
		}

		c, err := components(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.Broadcaster.Broadcast(cmd.Context(), &tx)
		if err != nil {
			return fmt.Errorf("广播失败: %w", err)
		}
		fmt.Printf("✅ 广播成功! TxID: %s\n", res.TxID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <txid>",
	Short: "查询交易回执",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := components(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		st, err := c.Broadcaster.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJSON(st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(broadcastCmd, statusCmd)
	broadcastCmd.Flags().StringVarP(&broadcastInput, "input", "i", "signed.json", "已签名的交易文件路径")
}
