package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tron-wallet-core/internal/app"
	"tron-wallet-core/pkg/config"
	"tron-wallet-core/pkg/logger"
)

var (
	cfgFile string
	network string
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "tron-wallet-cli",
	Short: "TRON 转账命令行工具",
	Long: `构建、风控检查、离线签名并广播 TRX / TRC20 转账。
私钥只在签名时从 Keystore 解密到内存，用完即清零。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(os.Getenv("APP_ENV"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./config.yaml 或 ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", "", "网络预设: mainnet / nile")
}

// loadConfig 读取配置，--network 覆盖文件中的网络并重新套用预设
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if network != "" && network != cfg.Tron.Network {
		if _, ok := config.Presets[network]; !ok {
			return nil, fmt.Errorf("unknown network %q", network)
		}
		cfg.Tron.Network = network
		cfg.Tron.TronscanURL, cfg.Tron.TronGridURL, cfg.Tron.JSONRPCURL, cfg.Token.Contract = "", "", "", ""
		cfg.ApplyPreset()
	}
	return cfg, nil
}

func components(ctx context.Context) (*app.Components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func writeJSON(file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0600)
}
