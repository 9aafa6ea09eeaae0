package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Cron   CronConfig   `mapstructure:"cron"`

	Fetch      FetchConfig      `mapstructure:"fetch"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Perf       PerfConfig       `mapstructure:"perf"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// RedisConfig is optional. When URL is empty the fetch cache and the dedup
// store fall back to in-process implementations.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Ingest    string `mapstructure:"ingest"`
	Aggregate string `mapstructure:"aggregate"`
	PerfCheck string `mapstructure:"perf_check"`
}

type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
	DefaultRate   int           `mapstructure:"default_rate"`
	DefaultBurst  int           `mapstructure:"default_burst"`
	DefaultPeriod time.Duration `mapstructure:"default_period"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// SourcesConfig seeds the source descriptor table on startup. The
// orchestrating scheduler may register more descriptors over the API.
type SourcesConfig struct {
	Seed        []SourceSeed `mapstructure:"seed"`
	Concurrency int          `mapstructure:"concurrency"`
}

type SourceSeed struct {
	Name         string        `mapstructure:"name"`
	Kind         string        `mapstructure:"kind"`
	Endpoint     string        `mapstructure:"endpoint"`
	AuthTokenEnv string        `mapstructure:"auth_token_env"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RatePeriod   time.Duration `mapstructure:"rate_period"`
	Enabled      bool          `mapstructure:"enabled"`
}

type ResolverConfig struct {
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	AmbiguityFloor float64 `mapstructure:"ambiguity_floor"`
}

type RulesConfig struct {
	Version              string        `mapstructure:"version"`
	OptionBonus          float64       `mapstructure:"option_bonus"`
	CoTradeWindow        time.Duration `mapstructure:"co_trade_window"`
	CoTradeMultiplier    float64       `mapstructure:"co_trade_multiplier"`
	LegislativeBase      float64       `mapstructure:"legislative_base"`
	CosponsorThreshold   int           `mapstructure:"cosponsor_threshold"`
	CosponsorMultiplier  float64       `mapstructure:"cosponsor_multiplier"`
	SentimentUnit        float64       `mapstructure:"sentiment_unit"`
	EngagementThreshold  float64       `mapstructure:"engagement_threshold"`
	EngagementMultiplier float64       `mapstructure:"engagement_multiplier"`
	CryptoBasket         []string      `mapstructure:"crypto_basket"`
	HalfLifeDays         float64       `mapstructure:"half_life_days"`
}

type AggregatorConfig struct {
	LongThreshold       float64 `mapstructure:"long_threshold"`
	ConfidenceDivisor   float64 `mapstructure:"confidence_divisor"`
	RationaleTopN       int     `mapstructure:"rationale_top_n"`
	ConfidenceAlertStep float64 `mapstructure:"confidence_alert_step"`
}

type PerfConfig struct {
	NoiseThresholdPct float64 `mapstructure:"noise_threshold_pct"`
}

type ClassifierConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TokenEnv string        `mapstructure:"token_env"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.url", "")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.ingest", "@every 6h")
	v.SetDefault("cron.aggregate", "@every 10m")
	v.SetDefault("cron.perf_check", "@every 24h")

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.cache_ttl", "24h")
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff_base", "500ms")
	v.SetDefault("fetch.backoff_max", "30s")
	v.SetDefault("fetch.default_rate", 30)
	v.SetDefault("fetch.default_burst", 1)
	v.SetDefault("fetch.default_period", "1m")
	v.SetDefault("fetch.user_agent", "grifttracker/1.0")

	v.SetDefault("sources.concurrency", 4)

	v.SetDefault("resolver.fuzzy_threshold", 0.85)
	v.SetDefault("resolver.ambiguity_floor", 0.60)

	v.SetDefault("rules.version", "v1")
	v.SetDefault("rules.option_bonus", 1.0)
	v.SetDefault("rules.co_trade_window", "168h")
	v.SetDefault("rules.co_trade_multiplier", 1.5)
	v.SetDefault("rules.legislative_base", 2.0)
	v.SetDefault("rules.cosponsor_threshold", 50)
	v.SetDefault("rules.cosponsor_multiplier", 1.3)
	v.SetDefault("rules.sentiment_unit", 1.0)
	v.SetDefault("rules.engagement_threshold", 10000)
	v.SetDefault("rules.engagement_multiplier", 1.5)
	v.SetDefault("rules.crypto_basket", []string{"BTC", "ETH"})
	v.SetDefault("rules.half_life_days", 7)

	v.SetDefault("aggregator.long_threshold", 4.0)
	v.SetDefault("aggregator.confidence_divisor", 10.0)
	v.SetDefault("aggregator.rationale_top_n", 5)
	v.SetDefault("aggregator.confidence_alert_step", 0.25)

	v.SetDefault("perf.noise_threshold_pct", 0.5)

	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.timeout", "20s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
