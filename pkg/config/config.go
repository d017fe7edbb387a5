package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Razorpay     RazorpayConfig
	Orders       OrdersConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SILKROUTE_APP_ENV" required:"true"`
	Port         string `envconfig:"SILKROUTE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SILKROUTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SILKROUTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SILKROUTE_DB_DSN"`
	Driver string `envconfig:"SILKROUTE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SILKROUTE_DB_HOST"`
	LegacyPort     int    `envconfig:"SILKROUTE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SILKROUTE_DB_USER"`
	LegacyPassword string `envconfig:"SILKROUTE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SILKROUTE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SILKROUTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SILKROUTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SILKROUTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SILKROUTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SILKROUTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SILKROUTE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SILKROUTE_REDIS_ADDR"`
	Password     string        `envconfig:"SILKROUTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SILKROUTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SILKROUTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SILKROUTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SILKROUTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SILKROUTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SILKROUTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RazorpayConfig struct {
	KeyID                 string        `envconfig:"SILKROUTE_RAZORPAY_KEY_ID" required:"true"`
	KeySecret             string        `envconfig:"SILKROUTE_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret         string        `envconfig:"SILKROUTE_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	WebhookIdempotencyTTL time.Duration `envconfig:"SILKROUTE_RAZORPAY_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type OrdersConfig struct {
	NumberPrefix string `envconfig:"SILKROUTE_ORDER_NUMBER_PREFIX" default:"SR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SILKROUTE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
