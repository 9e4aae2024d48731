package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "DEX_SENTINEL"
	EnvConfigPath  = "DEX_SENTINEL_CONFIG"
	defaultCfgPath = "./config/config.worker.yaml"

	TradeModeTelegram = "telegram"
	TradeModePaper    = "paper"
)

// Config 定义整个配置的结构
type Config struct {
	Log            LogConfig           `mapstructure:"log"`
	Database       DatabaseConfig      `mapstructure:"database"`
	Redis          RedisConfig         `mapstructure:"redis"`
	Kafka          KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch  ElasticsearchConfig `mapstructure:"elasticsearch"`
	Monitor        MonitorConfig       `mapstructure:"monitor"`
	Scan           ScanConfig          `mapstructure:"scan"`
	Filters        FiltersConfig       `mapstructure:"filters"`
	Blacklists     BlacklistsConfig    `mapstructure:"blacklists"`
	Oracles        OraclesConfig       `mapstructure:"oracles"`
	Dexscreener    DexscreenerConfig   `mapstructure:"dexscreener"`
	Rugcheck       APIConfig           `mapstructure:"rugcheck"`
	PocketUniverse APIConfig           `mapstructure:"pocket_universe"`
	Telegram       TelegramConfig      `mapstructure:"telegram"`
	Trade          TradeConfig         `mapstructure:"trade"`
	Lark           LarkConfig          `mapstructure:"lark"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DatabaseConfig driver 取值 sqlite / postgres / mysql
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置，address 为空时不启用
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka 配置，brokers 为空时不启用
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	TopicToken string `mapstructure:"topic_token"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	TokenIndex string   `mapstructure:"token_index"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

type ScanConfig struct {
	IntervalSeconds     int  `mapstructure:"interval_seconds"`
	CycleTimeoutSeconds int  `mapstructure:"cycle_timeout_seconds"` // 0 表示 interval 的一半
	BatchSize           int  `mapstructure:"batch_size"`
	PersistNormal       bool `mapstructure:"persist_normal"`
}

// FiltersConfig 过滤与分类阈值
type FiltersConfig struct {
	MinLiquidityThreshold float64 `mapstructure:"min_liquidity_threshold"`
	PumpThreshold         float64 `mapstructure:"pump_threshold"`
	RugThreshold          float64 `mapstructure:"rug_threshold"`
	MinVolume24h          float64 `mapstructure:"min_volume_24h"`
}

type BlacklistsConfig struct {
	Coins      []string `mapstructure:"coins"`
	Developers []string `mapstructure:"developers"`
}

type OraclesConfig struct {
	FailOpen        bool `mapstructure:"fail_open"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`
}

// APIConfig 外部 HTTP 服务通用配置
type APIConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	Timeout         int    `mapstructure:"timeout"`    // 秒
	RateLimit       int    `mapstructure:"rate_limit"` // 每分钟
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
}

type DexscreenerConfig struct {
	APIConfig  `mapstructure:",squash"`
	LatestPath string `mapstructure:"latest_path"`
	Query      string `mapstructure:"query"`
	// 只保留最近 N 小时创建的交易对，0 表示不过滤
	MaxPairAgeHours int `mapstructure:"max_pair_age_hours"`
}

type TelegramConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Timeout  int    `mapstructure:"timeout"`
}

// TradeConfig mode=telegram 时把指令发到交易机器人所在会话，paper 只记录日志
type TradeConfig struct {
	Mode   string  `mapstructure:"mode"`
	Amount float64 `mapstructure:"amount"`
	ChatID string  `mapstructure:"chat_id"` // 为空时复用 telegram.chat_id
}

// LarkConfig Lark 配置
type LarkConfig struct {
	Webhook string `mapstructure:"webhook"`
}

var (
	mu     sync.Mutex
	active *viper.Viper
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.max_size_mb", 200)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "dexscreener_data.db")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic_token", "dex_sentinel_token")

	v.SetDefault("elasticsearch.addresses", []string{})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.token_index", "dex_sentinel_tokens")

	v.SetDefault("monitor.enable", false)
	v.SetDefault("monitor.prometheus_addr", ":9100")

	v.SetDefault("scan.interval_seconds", 3600)
	v.SetDefault("scan.cycle_timeout_seconds", 0)
	v.SetDefault("scan.batch_size", 50)
	v.SetDefault("scan.persist_normal", false)

	v.SetDefault("filters.min_liquidity_threshold", 10000)
	v.SetDefault("filters.pump_threshold", 50)
	v.SetDefault("filters.rug_threshold", -50)
	v.SetDefault("filters.min_volume_24h", 5000)

	v.SetDefault("blacklists.coins", []string{})
	v.SetDefault("blacklists.developers", []string{})

	v.SetDefault("oracles.fail_open", false)
	v.SetDefault("oracles.cache_ttl_seconds", 600)

	v.SetDefault("dexscreener.base_url", "https://api.dexscreener.com")
	v.SetDefault("dexscreener.latest_path", "/latest/dex/search")
	v.SetDefault("dexscreener.query", "SOL")
	v.SetDefault("dexscreener.max_pair_age_hours", 0)
	v.SetDefault("dexscreener.timeout", 10)
	v.SetDefault("dexscreener.rate_limit", 300)
	v.SetDefault("dexscreener.breaker_failures", 0)

	v.SetDefault("rugcheck.base_url", "https://api.rugcheck.xyz")
	v.SetDefault("rugcheck.api_key", "")
	v.SetDefault("rugcheck.timeout", 10)
	v.SetDefault("rugcheck.rate_limit", 120)
	v.SetDefault("rugcheck.breaker_failures", 5)

	v.SetDefault("pocket_universe.base_url", "https://api.pocketuniverse.app")
	v.SetDefault("pocket_universe.api_key", "")
	v.SetDefault("pocket_universe.timeout", 10)
	v.SetDefault("pocket_universe.rate_limit", 120)
	v.SetDefault("pocket_universe.breaker_failures", 5)

	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.timeout", 10)

	v.SetDefault("trade.mode", TradeModePaper)
	v.SetDefault("trade.amount", 0.1)
	v.SetDefault("trade.chat_id", "")

	v.SetDefault("lark.webhook", "")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}

	// AllSettings 会合并默认值、配置文件与环境变量
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load 读取指定路径的配置文件；文件不存在时只使用默认值和环境变量
func Load(path string) (Config, *viper.Viper, error) {
	_ = godotenv.Load()

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, v, nil
}

// Path 配置文件路径，可通过环境变量覆盖
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultCfgPath
}

func InitConfig() Config {
	cfg, v, err := Load(Path())
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	mu.Lock()
	active = v
	mu.Unlock()
	return cfg
}

// WatchConfig 配置热加载，只在新配置合法时回调
func WatchConfig(onChange func(Config)) {
	mu.Lock()
	v := active
	mu.Unlock()
	if v == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			return
		}
		cfg, err := decode(v)
		if err != nil || cfg.Validate() != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func (c Config) Validate() error {
	var errs []error
	if c.Scan.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("scan.interval_seconds must be positive"))
	}
	if c.Oracles.CacheTTLSeconds > 0 && c.Oracles.CacheTTLSeconds >= c.Scan.IntervalSeconds {
		errs = append(errs, errors.New("oracles.cache_ttl_seconds must be shorter than scan.interval_seconds"))
	}
	if c.Scan.BatchSize <= 0 {
		errs = append(errs, errors.New("scan.batch_size must be positive"))
	}
	if c.Scan.CycleTimeoutSeconds < 0 {
		errs = append(errs, errors.New("scan.cycle_timeout_seconds must not be negative"))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Trade.Mode {
	case TradeModeTelegram:
		if c.Telegram.BotToken == "" || c.TradeChatID() == "" {
			errs = append(errs, errors.New("trade.mode=telegram requires telegram.bot_token and a chat id"))
		}
	case TradeModePaper:
	default:
		errs = append(errs, fmt.Errorf("unknown trade.mode %q", c.Trade.Mode))
	}
	if c.Trade.Amount <= 0 {
		errs = append(errs, errors.New("trade.amount must be positive"))
	}
	return errors.Join(errs...)
}

// TradeChatID 交易指令发送的会话
func (c Config) TradeChatID() string {
	if c.Trade.ChatID != "" {
		return c.Trade.ChatID
	}
	return c.Telegram.ChatID
}
