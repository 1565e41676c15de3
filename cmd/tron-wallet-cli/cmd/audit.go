package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tron-wallet-core/internal/service/audit"
	"tron-wallet-core/internal/service/risk"
)

var auditGroup string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "风控放行审计",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "持续输出强制放行记录 (需要 audit.sink=redis 或 kafka)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := components(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		consumer, err := c.AuditConsumer(auditGroup)
		if err != nil {
			return err
		}
		defer consumer.Close()

		return audit.Tail(ctx, consumer, c.Config.Audit.Topic, func(ev risk.OverrideEvent) error {
			fmt.Printf("%s  %s -> %s  %s %s  [%s] %s\n",
				ev.At.Format("2006-01-02 15:04:05"), ev.From, ev.Recipient, ev.Amount, ev.Token,
				ev.RiskType, strings.Join(ev.Reasons, " | "))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().StringVar(&auditGroup, "group", "tron-wallet-cli", "消费者组")
}
