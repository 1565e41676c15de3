package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Tron   TronConfig   `mapstructure:"tron"`
	Token  TokenConfig  `mapstructure:"token"`
	Fee    FeeConfig    `mapstructure:"fee"`
	Risk   RiskConfig   `mapstructure:"risk"`
	Tx     TxConfig     `mapstructure:"tx"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Wallet WalletConfig `mapstructure:"wallet"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

// TronConfig 节点与浏览器接入点，留空时按 network 预设补齐
type TronConfig struct {
	Network        string        `mapstructure:"network"` // mainnet / nile
	TronscanURL    string        `mapstructure:"tronscan_url"`
	TronscanAPIKey string        `mapstructure:"tronscan_api_key"`
	TronGridURL    string        `mapstructure:"trongrid_url"`
	TronGridAPIKey string        `mapstructure:"trongrid_api_key"`
	JSONRPCURL     string        `mapstructure:"jsonrpc_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Contract string `mapstructure:"contract"`
	Decimals int32  `mapstructure:"decimals"`
	FeeLimit int64  `mapstructure:"fee_limit"` // SUN
}

// FeeConfig 费用模型常量，单位 SUN / 字节 / 能量
type FeeConfig struct {
	MinNativeTransferFee int64 `mapstructure:"min_native_transfer_fee"`
	TokenEnergy          int64 `mapstructure:"token_energy"`
	EnergyPrice          int64 `mapstructure:"energy_price"`
	TokenBandwidth       int64 `mapstructure:"token_bandwidth"`
	BandwidthPrice       int64 `mapstructure:"bandwidth_price"`
	FreeDailyBandwidth   int64 `mapstructure:"free_daily_bandwidth"`
}

type RiskConfig struct {
	Keywords      []string      `mapstructure:"keywords"`
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheRedis    bool          `mapstructure:"cache_redis"` // 是否启用 Redis 二级缓存
}

type TxConfig struct {
	Expiration time.Duration `mapstructure:"expiration"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// AuditConfig 风控放行审计: sink 为 log / redis / kafka
type AuditConfig struct {
	Sink  string `mapstructure:"sink"`
	Topic string `mapstructure:"topic"`
}

type WalletConfig struct {
	KeystorePath    string `mapstructure:"keystore_path"`
	Password        string `mapstructure:"password"` // 通常通过环境变量 WALLET_PASSWORD 传入
	DerivationIndex uint32 `mapstructure:"derivation_index"`
}

// NetworkPreset 网络预设
type NetworkPreset struct {
	TronscanURL  string
	TronGridURL  string
	JSONRPCURL   string
	USDTContract string
}

var Presets = map[string]NetworkPreset{
	"mainnet": {
		TronscanURL:  "https://apilist.tronscan.org/api",
		TronGridURL:  "https://api.trongrid.io",
		JSONRPCURL:   "https://api.trongrid.io/jsonrpc",
		USDTContract: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
	},
	"nile": {
		TronscanURL:  "https://nileapi.tronscan.org/api",
		TronGridURL:  "https://nile.trongrid.io",
		JSONRPCURL:   "https://nile.trongrid.io/jsonrpc",
		USDTContract: "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf",
	},
}

var Global Config

// Init 读取配置到 Global，失败直接退出
func Init() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = *cfg
	log.Printf("Configuration loaded successfully. Env: %s, Network: %s", Global.App.Env, Global.Tron.Network)
}

// Load 读取配置文件与环境变量。file 为空时在 . 和 ./config 下查找 config.yaml
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 环境变量设置
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyPreset()
	return &cfg, nil
}

// Default 仅使用默认值（测试与 CLI 离线命令使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.ApplyPreset()
	return &cfg
}

// ApplyPreset 用户显式设置的值优先，其余按网络预设补齐
func (c *Config) ApplyPreset() {
	c.Tron.Network = strings.ToLower(strings.TrimSpace(c.Tron.Network))
	preset, ok := Presets[c.Tron.Network]
	if !ok {
		c.Tron.Network = "mainnet"
		preset = Presets["mainnet"]
	}
	if c.Tron.TronscanURL == "" {
		c.Tron.TronscanURL = preset.TronscanURL
	}
	if c.Tron.TronGridURL == "" {
		c.Tron.TronGridURL = preset.TronGridURL
	}
	if c.Tron.JSONRPCURL == "" {
		c.Tron.JSONRPCURL = preset.JSONRPCURL
	}
	if c.Token.Contract == "" {
		c.Token.Contract = preset.USDTContract
	}
	if c.Tron.TronGridAPIKey == "" {
		c.Tron.TronGridAPIKey = c.Tron.TronscanAPIKey
	}
	c.Tron.TronscanURL = strings.TrimRight(c.Tron.TronscanURL, "/")
	c.Tron.TronGridURL = strings.TrimRight(c.Tron.TronGridURL, "/")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")

	v.SetDefault("tron.network", "mainnet")
	// 空默认值让 AutomaticEnv 能覆盖这些键，真正的值由 ApplyPreset 补齐
	v.SetDefault("tron.tronscan_url", "")
	v.SetDefault("tron.tronscan_api_key", "")
	v.SetDefault("tron.trongrid_url", "")
	v.SetDefault("tron.trongrid_api_key", "")
	v.SetDefault("tron.jsonrpc_url", "")
	v.SetDefault("tron.timeout", 10*time.Second)

	v.SetDefault("token.symbol", "USDT")
	v.SetDefault("token.contract", "")
	v.SetDefault("token.decimals", 6)
	v.SetDefault("token.fee_limit", 100_000_000)

	v.SetDefault("fee.min_native_transfer_fee", 100_000)
	v.SetDefault("fee.token_energy", 65_000)
	v.SetDefault("fee.energy_price", 420)
	v.SetDefault("fee.token_bandwidth", 350)
	v.SetDefault("fee.bandwidth_price", 1000)
	v.SetDefault("fee.free_daily_bandwidth", 600)

	v.SetDefault("risk.keywords", []string{
		"scam", "phish", "hack", "fraud", "suspicious", "stolen", "exploit", "ponzi", "laundering",
	})
	v.SetDefault("risk.source_timeout", 5*time.Second)
	v.SetDefault("risk.cache_ttl", 10*time.Minute)
	v.SetDefault("risk.cache_redis", false)

	v.SetDefault("tx.expiration", 10*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.topic", "tron.risk.override")

	v.SetDefault("wallet.keystore_path", "wallet.json")
	v.SetDefault("wallet.password", "")
	v.SetDefault("wallet.derivation_index", 0)
}
