package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tron-wallet-core/pkg/address"
)

var addressFromKeystore bool

var addressCmd = &cobra.Command{
	Use:   "address [address]",
	Short: "校验地址并显示 Base58 / Hex 两种形式",
	Long:  `输入 T 开头或 41 开头的地址，输出两种编码；使用 --from-keystore 时显示 Keystore 派生的地址。`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in string
		switch {
		case addressFromKeystore:
			key, err := promptKey()
			if err != nil {
				return err
			}
			in = key.Address()
			key.Destroy()
		case len(args) == 1:
			in = args[0]
		default:
			return fmt.Errorf("需要一个地址参数或 --from-keystore")
		}

		p, err := address.Decode(in)
		if err != nil {
			return err
		}
		fmt.Printf("Base58: %s\n", address.Encode(p))
		fmt.Printf("Hex:    %s\n", p.Hex())
		fmt.Printf("Body:   %x\n", p.Bytes20())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVar(&addressFromKeystore, "from-keystore", false, "从 Keystore 派生地址")
	addKeyFlags(addressCmd)
}
