package cmd

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/address"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "查询 TRX 与 TRC20 余额及转账费用估算",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := address.ToBase58(args[0])
		if err != nil {
			return err
		}
		c, err := components(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		token := c.Tokens.TRC20()

		var native, tokenBal *big.Int
		if native, err = c.RPC.GetNativeBalance(ctx, addr); err != nil {
			return err
		}
		if tokenBal, err = c.RPC.GetTokenBalance(ctx, addr, token.Contract); err != nil {
			return err
		}
		fmt.Printf("TRX:   %s\n", model.FromSmallest(native, model.NativeDecimals))
		fmt.Printf("%-6s %s\n", token.Symbol+":", model.FromSmallest(tokenBal, token.Decimals))
		fmt.Printf("TRX 转账费用:   %s TRX\n", c.Fee.Estimate(model.TokenNative).TotalTRX)
		fmt.Printf("%s 转账费用:  %s TRX\n", token.Symbol, c.Fee.Estimate(model.TokenTRC20).TotalTRX)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
