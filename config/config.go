package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Invites  InvitesConfig  `mapstructure:"invites"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Debug     bool   `mapstructure:"debug"`
	AdminKey  string `mapstructure:"admin_key"`
	PublicURL string `mapstructure:"public_url"` // base URL embedded in invite links / QR payloads
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type LedgerConfig struct {
	DefaultCurrency string        `mapstructure:"default_currency"`
	SuggestionCap   int           `mapstructure:"suggestion_cap"`  // max settlement suggestions per group
	ReminderAge     time.Duration `mapstructure:"reminder_age"`    // open debt age before a reminder fires
	ReminderSweep   time.Duration `mapstructure:"reminder_sweep"`  // how often the reminder sweep runs
	SummaryRefresh  time.Duration `mapstructure:"summary_refresh"` // analytics cache rebuild interval
}

type InvitesConfig struct {
	CodeTTL time.Duration `mapstructure:"code_ttl"`
	QRDir   string        `mapstructure:"qr_dir"` // directory for generated invite QR images
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/spendy.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.suggestion_cap", 5)
	v.SetDefault("ledger.reminder_age", "168h")
	v.SetDefault("ledger.reminder_sweep", "1h")
	v.SetDefault("ledger.summary_refresh", "10m")
	v.SetDefault("invites.code_ttl", "168h")
	v.SetDefault("invites.qr_dir", "./data/qr")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
