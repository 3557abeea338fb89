package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Env               string        `mapstructure:"env"`
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GatewayConfig holds the merchant credentials for the hosted payment page provider.
type GatewayConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Environment     string        `mapstructure:"environment"`
	MerchantID      string        `mapstructure:"merchant_id"`
	SaltKey         string        `mapstructure:"salt_key"`
	SaltIndex       string        `mapstructure:"salt_index"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
	SuccessURL      string        `mapstructure:"success_url"`
	FailureURL      string        `mapstructure:"failure_url"`
	PendingURL      string        `mapstructure:"pending_url"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	Password            string `mapstructure:"password"`
	DB                  int    `mapstructure:"db"`
	NotificationChannel string `mapstructure:"notification_channel"`
	NotificationOutbox  string `mapstructure:"notification_outbox"`
}

type SchedulerConfig struct {
	ExpiryCron    string        `mapstructure:"expiry_cron"`
	ResolveCron   string        `mapstructure:"resolve_cron"`
	PendingMinAge time.Duration `mapstructure:"pending_min_age"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

const (
	GatewayEnvSandbox    = "sandbox"
	GatewayEnvProduction = "production"
)

type envBinding struct {
	env string
	def any
}

// envBindings maps every config key to its container environment variable
// and default. Defaults apply to config.yml deployments as well.
var envBindings = map[string]envBinding{
	"http_server.env":                 {"APP_ENV", "production"},
	"http_server.port":                {"HTTP_PORT", 8080},
	"http_server.base_url":            {"HTTP_BASE_URL", ""},
	"http_server.allowed_origins":     {"HTTP_ALLOWED_ORIGINS", ""},
	"http_server.read_header_timeout": {"HTTP_READ_HEADER_TIMEOUT", 5 * time.Second},
	"http_server.read_timeout":        {"HTTP_READ_TIMEOUT", 15 * time.Second},
	"http_server.idle_timeout":        {"HTTP_IDLE_TIMEOUT", 60 * time.Second},
	"http_server.write_timeout":       {"HTTP_WRITE_TIMEOUT", 30 * time.Second},
	"database.max_open_conns":         {"DB_MAX_OPEN_CONNS", 25},
	"database.max_idle_conns":         {"DB_MAX_IDLE_CONNS", 5},
	"database.conn_max_lifetime":      {"DB_CONN_MAX_LIFETIME", 30 * time.Minute},
	"database.conn_max_idle_time":     {"DB_CONN_MAX_IDLE_TIME", 5 * time.Minute},
	"database.source":                 {"DATABASE_URL", ""},
	"security.jwt_access_secret":      {"JWT_ACCESS_SECRET", ""},
	"security.jwt_refresh_secret":     {"JWT_REFRESH_SECRET", ""},
	"security.access_token_duration":  {"JWT_ACCESS_TTL", 15 * time.Minute},
	"security.refresh_token_duration": {"JWT_REFRESH_TTL", 7 * 24 * time.Hour},
	"security.bcrypt_cost":            {"BCRYPT_COST", 12},
	"observability.logging.level":     {"LOG_LEVEL", "info"},
	"observability.logging.format":    {"LOG_FORMAT", "json"},
	"gateway.enabled":                 {"GATEWAY_ENABLED", false},
	"gateway.environment":             {"GATEWAY_ENVIRONMENT", GatewayEnvSandbox},
	"gateway.merchant_id":             {"GATEWAY_MERCHANT_ID", ""},
	"gateway.salt_key":                {"GATEWAY_SALT_KEY", ""},
	"gateway.salt_index":              {"GATEWAY_SALT_INDEX", "1"},
	"gateway.base_url":                {"GATEWAY_BASE_URL", ""},
	"gateway.timeout":                 {"GATEWAY_TIMEOUT", 10 * time.Second},
	"gateway.callback_base_url":       {"GATEWAY_CALLBACK_BASE_URL", ""},
	"gateway.success_url":             {"GATEWAY_SUCCESS_URL", ""},
	"gateway.failure_url":             {"GATEWAY_FAILURE_URL", ""},
	"gateway.pending_url":             {"GATEWAY_PENDING_URL", ""},
	"redis.addr":                      {"REDIS_ADDR", ""},
	"redis.password":                  {"REDIS_PASSWORD", ""},
	"redis.db":                        {"REDIS_DB", 0},
	"redis.notification_channel":      {"REDIS_NOTIFICATION_CHANNEL", "gym:notifications"},
	"redis.notification_outbox":       {"REDIS_NOTIFICATION_OUTBOX", "gym:notifications:outbox"},
	"scheduler.expiry_cron":           {"SCHEDULER_EXPIRY_CRON", "0 5 0 * * *"},
	"scheduler.resolve_cron":          {"SCHEDULER_RESOLVE_CRON", "0 */15 * * * *"},
	"scheduler.pending_min_age":       {"SCHEDULER_PENDING_MIN_AGE", 15 * time.Minute},
	"scheduler.stale_after":           {"SCHEDULER_STALE_AFTER", 24 * time.Hour},
	"scheduler.lock_ttl":              {"SCHEDULER_LOCK_TTL", 5 * time.Minute},
}

// SetDefaults registers the default of every known key on v.
func SetDefaults(v *viper.Viper) {
	for key, b := range envBindings {
		v.SetDefault(key, b.def)
	}
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	for key, b := range envBindings {
		if err := v.BindEnv(key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("scheduler config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTAccessSecret) < 32 {
		return errors.New("jwt_access_secret must be at least 32 characters")
	}
	if len(c.JWTRefreshSecret) < 32 {
		return errors.New("jwt_refresh_secret must be at least 32 characters")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Validate checks the merchant credentials. A disabled gateway is always valid so
// that environments without provider access can still boot.
func (c *GatewayConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var missing []string
	if c.MerchantID == "" {
		missing = append(missing, "merchant_id")
	}
	if c.SaltKey == "" {
		missing = append(missing, "salt_key")
	}
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.CallbackBaseURL == "" {
		missing = append(missing, "callback_base_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if idx, err := strconv.Atoi(c.SaltIndex); err != nil || idx < 1 {
		return fmt.Errorf("salt_index must be a positive integer, got %q", c.SaltIndex)
	}
	if c.Environment != GatewayEnvSandbox && c.Environment != GatewayEnvProduction {
		return fmt.Errorf("environment must be %q or %q", GatewayEnvSandbox, GatewayEnvProduction)
	}
	for name, raw := range map[string]string{"base_url": c.BaseURL, "callback_base_url": c.CallbackBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not an absolute url", name)
		}
	}
	return nil
}

func (c *SchedulerConfig) Validate() error {
	if c.StaleAfter > 0 && c.PendingMinAge > c.StaleAfter {
		return errors.New("pending_min_age cannot exceed stale_after")
	}
	return nil
}
