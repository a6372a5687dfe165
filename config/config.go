package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects where market data comes from. It is fixed for the lifetime
// of the process.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

type Config struct {
	Mode     string         `mapstructure:"mode"`
	Sim      SimConfig      `mapstructure:"sim"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Trade    TradeConfig    `mapstructure:"trade"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SimConfig points at the external economic simulation.
type SimConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	Feed FeedConfig `mapstructure:"feed"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeedConfig configures the push channel that announces new simulation days.
type FeedConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type ReplayConfig struct {
	MsPerDay     int64         `mapstructure:"ms_per_day"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRows      int           `mapstructure:"max_rows"`
}

type CacheConfig struct {
	SeriesTTL   time.Duration `mapstructure:"series_ttl"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

type TradeConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load reads configuration using Viper from config.yaml in the given
// directory (or the working directory when empty) and overrides with
// environment variables, e.g. SIM_REST_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Support environment variables with dot notation (e.g., SIM_FEED_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Mode != ModeLive && cfg.Mode != ModeReplay {
		return nil, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, ModeLive, ModeReplay)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeReplay)
	v.SetDefault("sim.rest.timeout", 10*time.Second)
	v.SetDefault("sim.feed.handshake_timeout", 10*time.Second)
	v.SetDefault("replay.ms_per_day", int64(5000))
	v.SetDefault("replay.poll_interval", 250*time.Millisecond)
	v.SetDefault("replay.max_rows", 20000)
	v.SetDefault("cache.series_ttl", 30*time.Second)
	v.SetDefault("cache.metadata_ttl", 5*time.Minute)
	v.SetDefault("trade.cooldown", 2*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "dev")
}
