package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of all runtime configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Event     EventConfig
	HTTP      HTTPConfig
	Matching  MatchingConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig identifies the service and its listen port.
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds token signing and lifetime settings.
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
	ExpirationHours        int // Deprecated: use AccessTokenExpiration instead
}

// EventConfig tunes the outbox processor.
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// HTTPConfig holds server timeouts, limits, and CORS settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// MatchingConfig is the deployment-wide fallback tolerance policy, applied
// when a tenant has no active tolerance configuration of its own.
type MatchingConfig struct {
	QuantityTolerancePercent float64
	PriceTolerancePercent    float64
	AmountTolerancePercent   float64
	AmountToleranceAbsolute  float64
	AmountMode               string // ABSOLUTE, PERCENTAGE, WHICHEVER_IS_LOWER
	AutoApprove              bool
	AutoApproveCeiling       float64 // 0 means no ceiling
}

// SwaggerConfig gates the API documentation endpoint.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string // empty means allow all
}

// TelemetryConfig holds OpenTelemetry and profiling settings.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0 to 1.0
	ServiceName       string
	Insecure          bool // plaintext collector connection, development only

	DBTraceEnabled    bool // otelgorm query tracing
	DBLogFullSQL      bool // record full SQL in spans; keep off in production
	DBSlowQueryThresh time.Duration

	ProfilerEnabled       bool
	ProfilerServerAddress string // Pyroscope address, e.g. "http://pyroscope:4040"
}

// Load resolves configuration from, in descending priority: environment
// variables with the PROCUREFLOW_ prefix, config.toml, and built-in
// defaults. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PROCUREFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true must be declared to viper, otherwise
	// an explicit "false" is indistinguishable from unset.
	v.SetDefault("event.processor_enabled", true)
	v.SetDefault("event.cleanup_enabled", true)
	v.SetDefault("matching.auto_approve", true)

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromViper reads every known key into the config struct.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
			ExpirationHours:        v.GetInt("jwt.expiration_hours"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Matching: MatchingConfig{
			QuantityTolerancePercent: v.GetFloat64("matching.quantity_tolerance_percent"),
			PriceTolerancePercent:    v.GetFloat64("matching.price_tolerance_percent"),
			AmountTolerancePercent:   v.GetFloat64("matching.amount_tolerance_percent"),
			AmountToleranceAbsolute:  v.GetFloat64("matching.amount_tolerance_absolute"),
			AmountMode:               v.GetString("matching.amount_mode"),
			AutoApprove:              v.GetBool("matching.auto_approve"),
			AutoApproveCeiling:       v.GetFloat64("matching.auto_approve_ceiling"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilerEnabled:       v.GetBool("telemetry.profiler_enabled"),
			ProfilerServerAddress: v.GetString("telemetry.profiler_server_address"),
		},
	}
}

// setIfZero replaces a zero value with def. Zero doubles as "unset" here,
// so a field cannot be explicitly configured to its type's zero value.
func setIfZero[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func applyDefaults(cfg *Config) {
	setIfZero(&cfg.App.Name, "procureflow-backend")
	setIfZero(&cfg.App.Env, "development")
	setIfZero(&cfg.App.Port, "8080")

	setIfZero(&cfg.Database.Host, "localhost")
	setIfZero(&cfg.Database.Port, 5432)
	setIfZero(&cfg.Database.User, "postgres")
	setIfZero(&cfg.Database.DBName, "procureflow")
	setIfZero(&cfg.Database.SSLMode, "disable")
	setIfZero(&cfg.Database.MaxOpenConns, 25)
	setIfZero(&cfg.Database.MaxIdleConns, 5)
	setIfZero(&cfg.Database.ConnMaxLifetime, 60)
	setIfZero(&cfg.Database.ConnMaxIdleTime, 30)

	setIfZero(&cfg.Redis.Host, "localhost")
	setIfZero(&cfg.Redis.Port, 6379)

	setIfZero(&cfg.JWT.AccessTokenExpiration, 15*time.Minute)
	setIfZero(&cfg.JWT.RefreshTokenExpiration, 168*time.Hour)
	setIfZero(&cfg.JWT.Issuer, "procureflow-backend")
	setIfZero(&cfg.JWT.MaxRefreshCount, 10)

	setIfZero(&cfg.Log.Level, "info")
	setIfZero(&cfg.Log.Format, "console")
	setIfZero(&cfg.Log.Output, "stdout")

	setIfZero(&cfg.Event.BatchSize, 100)
	setIfZero(&cfg.Event.PollInterval, 5*time.Second)
	setIfZero(&cfg.Event.CleanupRetention, 168*time.Hour)

	setIfZero(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setIfZero(&cfg.HTTP.WriteTimeout, 15*time.Second)
	setIfZero(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setIfZero(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	setIfZero(&cfg.HTTP.MaxBodySize, 10<<20)
	setIfZero(&cfg.HTTP.RateLimitRequests, 100)
	setIfZero(&cfg.HTTP.RateLimitWindow, time.Minute)

	// CORS origins get no wildcard fallback. An empty list means no
	// cross-origin requests until origins are configured explicitly.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID", "Idempotency-Key"}
	}

	// The built-in tolerance policy: 5% quantity, 2% price, 5% amount,
	// auto-approval without a ceiling.
	setIfZero(&cfg.Matching.QuantityTolerancePercent, 5)
	setIfZero(&cfg.Matching.PriceTolerancePercent, 2)
	setIfZero(&cfg.Matching.AmountTolerancePercent, 5)
	setIfZero(&cfg.Matching.AmountMode, "PERCENTAGE")

	setIfZero(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	setIfZero(&cfg.Telemetry.SamplingRatio, 1.0)
	setIfZero(&cfg.Telemetry.ServiceName, "procureflow-backend")
	setIfZero(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
	setIfZero(&cfg.Telemetry.ProfilerServerAddress, "http://localhost:4040")
	// Insecure, DBTraceEnabled, and DBLogFullSQL stay false until enabled
	// deliberately.
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Matching.QuantityTolerancePercent < 0 || c.Matching.PriceTolerancePercent < 0 ||
		c.Matching.AmountTolerancePercent < 0 || c.Matching.AmountToleranceAbsolute < 0 ||
		c.Matching.AutoApproveCeiling < 0 {
		return fmt.Errorf("matching tolerances cannot be negative")
	}
	switch c.Matching.AmountMode {
	case "ABSOLUTE", "PERCENTAGE", "WHICHEVER_IS_LOWER":
	default:
		return fmt.Errorf("matching.amount_mode must be ABSOLUTE, PERCENTAGE or WHICHEVER_IS_LOWER, got %q", c.Matching.AmountMode)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction enforces the settings a production deployment must
// not run without.
func (c *Config) validateProduction() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
	}
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}
	return nil
}

// DSN builds the postgres connection URL, escaping user and password.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
