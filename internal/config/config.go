// Package config handles application configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// Constants for configuration
const (
	DefaultConfigName  = "tradesim"
	DefaultStoragePath = "./tradesim.db"
	EnvPrefix          = "TRADESIM"

	DriverBuntDB = "buntdb"
	DriverSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Market     MarketConfig     `mapstructure:"market"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Mail       MailConfig       `mapstructure:"mail"`
}

// ServerConfig holds the dashboard server configuration
type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// SimulationConfig holds the session defaults. Durations accept day and week
// units, e.g. "5s", "1h" or "1d".
type SimulationConfig struct {
	TickInterval  string `mapstructure:"tick_interval"`
	Rollover      string `mapstructure:"rollover"`
	Window        int    `mapstructure:"window"`
	TradeLogCap   int    `mapstructure:"trade_log_cap"`
	Seed          int64  `mapstructure:"seed"`
	FrameInterval string `mapstructure:"frame_interval"`
	Timeframe     string `mapstructure:"timeframe"`
}

// MarketConfig holds the upstream market data configuration
type MarketConfig struct {
	OKXBaseURL       string   `mapstructure:"okx_base_url"`
	RateLimit        float64  `mapstructure:"rate_limit"`
	Burst            int      `mapstructure:"burst"`
	Symbols          []string `mapstructure:"symbols"`
	CoinGeckoBaseURL string   `mapstructure:"coingecko_base_url"`
	CoinGeckoIDs     []string `mapstructure:"coingecko_ids"`
	JupiterBaseURL   string   `mapstructure:"jupiter_base_url"`
	JupiterIDs       []string `mapstructure:"jupiter_ids"`
	Binance          bool     `mapstructure:"binance"`
	PollInterval     string   `mapstructure:"poll_interval"`
}

// StorageConfig selects the trade journal backend
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Users   []int  `mapstructure:"users"`
}

// KafkaConfig holds the trade event publisher configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MailConfig holds the losing trade mail alerts configuration
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Password string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)

	v.SetDefault("simulation.tick_interval", "1s")
	v.SetDefault("simulation.rollover", "5s")
	v.SetDefault("simulation.window", 24)
	v.SetDefault("simulation.trade_log_cap", 500)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.frame_interval", "33ms")
	v.SetDefault("simulation.timeframe", "1h")

	v.SetDefault("market.okx_base_url", "https://www.okx.com")
	v.SetDefault("market.rate_limit", 10)
	v.SetDefault("market.burst", 20)
	v.SetDefault("market.symbols", []string{"BTC", "ETH", "SOL", "OKB"})
	v.SetDefault("market.coingecko_base_url", "https://api.coingecko.com")
	v.SetDefault("market.coingecko_ids", []string{"bitcoin", "ethereum", "solana"})
	v.SetDefault("market.jupiter_base_url", "https://price.jup.ag")
	v.SetDefault("market.jupiter_ids", []string{"SOL"})
	v.SetDefault("market.binance", false)
	v.SetDefault("market.poll_interval", "10s")

	v.SetDefault("storage.driver", DriverBuntDB)
	v.SetDefault("storage.path", DefaultStoragePath)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.users", []int{})

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "tradesim.trades")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.password", "")
}

// Load reads the configuration. Environment variables such as
// TRADESIM_SERVER_PORT override the file, and the file overrides defaults.
// An empty path looks for tradesim.yaml in the working directory and is
// fine to miss; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values the rest of the program assumes
func (c *Config) Validate() error {
	if c.Storage.Driver != DriverBuntDB && c.Storage.Driver != DriverSQLite {
		return fmt.Errorf("%w: storage.driver must be %s or %s, got %q", ErrInvalidConfig, DriverBuntDB, DriverSQLite, c.Storage.Driver)
	}
	if c.Simulation.Window <= 0 {
		return fmt.Errorf("%w: simulation.window must be positive", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	durations := map[string]string{
		"simulation.tick_interval":  c.Simulation.TickInterval,
		"simulation.rollover":       c.Simulation.Rollover,
		"simulation.frame_interval": c.Simulation.FrameInterval,
		"market.poll_interval":      c.Market.PollInterval,
	}
	for key, value := range durations {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token is required when telegram is enabled", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka needs brokers and a topic", ErrInvalidConfig)
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "" || c.Mail.To == "") {
		return fmt.Errorf("%w: mail needs a host, a sender and a recipient", ErrInvalidConfig)
	}

	return nil
}

func parseDuration(value string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", value)
	}
	return d, nil
}

// TickIntervalDuration is the validated simulation tick period
func (s SimulationConfig) TickIntervalDuration() time.Duration {
	d, _ := parseDuration(s.TickInterval)
	return d
}

// RolloverDuration is the validated candle rollover threshold
func (s SimulationConfig) RolloverDuration() time.Duration {
	d, _ := parseDuration(s.Rollover)
	return d
}

// FrameIntervalDuration is the validated chart animation period
func (s SimulationConfig) FrameIntervalDuration() time.Duration {
	d, _ := parseDuration(s.FrameInterval)
	return d
}

// PollIntervalDuration is the validated price polling period
func (m MarketConfig) PollIntervalDuration() time.Duration {
	d, _ := parseDuration(m.PollInterval)
	return d
}

// Settings returns the notifier settings
func (c *Config) Settings() *core.Settings {
	return &core.Settings{
		Symbols: c.Market.Symbols,
		Telegram: core.TelegramSettings{
			Enabled: c.Telegram.Enabled,
			Token:   c.Telegram.Token,
			Users:   c.Telegram.Users,
		},
		Kafka: core.KafkaSettings{
			Enabled: c.Kafka.Enabled,
			Brokers: c.Kafka.Brokers,
			Topic:   c.Kafka.Topic,
		},
	}
}

// SaveDefault writes the default configuration to path, creating its directory
func SaveDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create configuration directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("could not save default configuration: %w", err)
	}
	return nil
}
