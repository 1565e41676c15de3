package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tron-wallet-core/pkg/address"
)

var riskCmd = &cobra.Command{
	Use:   "risk <address>",
	Short: "评估接收方地址风险",
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

		v := c.Evaluator.Evaluate(cmd.Context(), addr)
		printJSON(v)
		fmt.Println(v.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(riskCmd)
}
