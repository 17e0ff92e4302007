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
	Session      SessionConfig
	FeatureFlags FeatureFlagsConfig
	GiftRules    GiftRulesConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"BRIGHTBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"BRIGHTBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRIGHTBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIGHTBASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRIGHTBASKET_DB_DSN"`
	Driver string `envconfig:"BRIGHTBASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRIGHTBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"BRIGHTBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRIGHTBASKET_DB_USER"`
	LegacyPassword string `envconfig:"BRIGHTBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRIGHTBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRIGHTBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIGHTBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIGHTBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIGHTBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIGHTBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIGHTBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRIGHTBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"BRIGHTBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIGHTBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIGHTBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIGHTBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIGHTBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIGHTBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIGHTBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	Secret            string `envconfig:"BRIGHTBASKET_SESSION_SECRET" required:"true"`
	Issuer            string `envconfig:"BRIGHTBASKET_SESSION_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BRIGHTBASKET_SESSION_EXPIRATION_MINUTES" default:"43200"`
	AdminSecret       string `envconfig:"BRIGHTBASKET_ADMIN_TOKEN_SECRET" required:"true"`
}

// TTL returns the configured session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRIGHTBASKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRIGHTBASKET_AUTO_MIGRATE" default:"false"`
}

type GiftRulesConfig struct {
	CacheTTL time.Duration `envconfig:"BRIGHTBASKET_GIFT_RULES_CACHE_TTL" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BRIGHTBASKET_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
