package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tron-wallet-core/internal/service/transfer"
	"tron-wallet-core/pkg/signer"
)

var (
	buildFrom      string
	buildTo        string
	buildAmount    string
	buildToken     string
	buildForce     bool
	buildSign      bool
	buildBroadcast bool
	buildOutput    string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "风控检查并构建转账 (可选签名与广播)",
	Long: `依次执行接收方风险评估、熔断、余额检查与交易构建。
风险地址默认被拦截，确认风险后使用 --force 放行（会写审计记录）。
使用 --sign 时从 Keystore 解密私钥签名，--broadcast 签名后直接广播。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := components(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		req := transfer.Request{
			From:           buildFrom,
			To:             buildTo,
			Amount:         buildAmount,
			Token:          buildToken,
			ForceExecution: buildForce,
			Sign:           buildSign || buildBroadcast,
			Broadcast:      buildBroadcast,
		}
		if req.Sign {
			var key *signer.Key
			if key, err = promptKey(); err != nil {
				return err
			}
			req.Key = key
		}

		out, err := c.Transfers.BuildAndMaybeSign(ctx, req)
		if err != nil {
			return err
		}

		if out.Blocked != nil {
			printJSON(out.Blocked)
			return fmt.Errorf("转账被风控拦截: %s", out.Blocked.Hint)
		}
		for _, w := range out.Warnings {
			fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
		}

		switch {
		case out.Broadcast != nil:
			fmt.Printf("✅ 广播成功! TxID: %s\n", out.Broadcast.TxID)
		case out.Signed != nil:
			if err := writeJSON(buildOutput, out.Signed); err != nil {
				return err
			}
			fmt.Printf("✅ 签名完成, TxID: %s, 已保存到: %s\n", out.Signed.TxID, buildOutput)
		default:
			if err := writeJSON(buildOutput, out.Unsigned); err != nil {
				return err
			}
			fmt.Printf("未签名交易已保存到: %s (TxID: %s)\n", buildOutput, out.Unsigned.TxID)
		}
		fmt.Println(out.Summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildFrom, "from", "", "发送方地址 (签名时可省略，取 Keystore 地址)")
	buildCmd.Flags().StringVar(&buildTo, "to", "", "接收方地址")
	buildCmd.Flags().StringVar(&buildAmount, "amount", "", "十进制金额，例如 10.5")
	buildCmd.Flags().StringVar(&buildToken, "token", "", "TRX 或配置的 TRC20 符号 (默认 TRC20)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "确认风险后强制放行")
	buildCmd.Flags().BoolVar(&buildSign, "sign", false, "构建后立即签名")
	buildCmd.Flags().BoolVar(&buildBroadcast, "broadcast", false, "签名后立即广播")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "unsigned.json", "输出文件路径")
	_ = buildCmd.MarkFlagRequired("to")
	_ = buildCmd.MarkFlagRequired("amount")
	addKeyFlags(buildCmd)
}
