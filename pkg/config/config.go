package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/modbuspro/license-server/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
	Licensing    LicensingConfig
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
	Env          string `envconfig:"MBPRO_APP_ENV" required:"true"`
	Port         string `envconfig:"MBPRO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MBPRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MBPRO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MBPRO_DB_DSN"`
	Driver string `envconfig:"MBPRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MBPRO_DB_HOST"`
	LegacyPort     int    `envconfig:"MBPRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MBPRO_DB_USER"`
	LegacyPassword string `envconfig:"MBPRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MBPRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MBPRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MBPRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MBPRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MBPRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MBPRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig backs the webhook replay guard. The guard is optional: when no
// URL or address is configured the service falls back to database-only
// idempotency.
type RedisConfig struct {
	URL          string        `envconfig:"MBPRO_REDIS_URL"`
	Address      string        `envconfig:"MBPRO_REDIS_ADDR"`
	Password     string        `envconfig:"MBPRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MBPRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MBPRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MBPRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MBPRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MBPRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MBPRO_REDIS_WRITE_TIMEOUT" default:"5s"`
	GuardTTL     time.Duration `envconfig:"MBPRO_REDIS_GUARD_TTL" default:"72h"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type StripeConfig struct {
	APIKey string `envconfig:"MBPRO_STRIPE_API_KEY"`
	Secret string `envconfig:"MBPRO_STRIPE_SECRET"`
	Env    string `envconfig:"MBPRO_STRIPE_ENV" default:"test"`

	PricePersonal string `envconfig:"MBPRO_STRIPE_PRICE_PERSONAL"`
	PriceTeam     string `envconfig:"MBPRO_STRIPE_PRICE_TEAM"`
	PriceSite     string `envconfig:"MBPRO_STRIPE_PRICE_SITE"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PriceTiers maps configured Stripe price IDs to the tier they grant.
// Unconfigured price IDs are left out of the table.
func (s StripeConfig) PriceTiers() map[string]enums.LicenseTier {
	table := map[string]enums.LicenseTier{}
	if s.PricePersonal != "" {
		table[s.PricePersonal] = enums.LicenseTierPersonal
	}
	if s.PriceTeam != "" {
		table[s.PriceTeam] = enums.LicenseTierTeam
	}
	if s.PriceSite != "" {
		table[s.PriceSite] = enums.LicenseTierSite
	}
	return table
}

type SMTPConfig struct {
	Host     string `envconfig:"MBPRO_SMTP_HOST"`
	Port     string `envconfig:"MBPRO_SMTP_PORT" default:"587"`
	Username string `envconfig:"MBPRO_SMTP_USERNAME"`
	Password string `envconfig:"MBPRO_SMTP_PASSWORD"`
	From     string `envconfig:"MBPRO_SMTP_FROM" default:"ModBus Pro <license@modbus.app>"`
}

type LicensingConfig struct {
	KeyPrefix    string `envconfig:"MBPRO_LICENSE_KEY_PREFIX" default:"MBPRO"`
	SupportEmail string `envconfig:"MBPRO_SUPPORT_EMAIL" default:"support@modbus.app"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MBPRO_AUTO_MIGRATE" default:"false"`
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
