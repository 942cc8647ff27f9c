package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; the explicit envconfig tags below keep the
// variable names stable regardless.
const EnvPrefix = "POPCORN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "POPCORN_APP_ENV"
	EnvDBDSN  = "POPCORN_DB_DSN"
	EnvDBHost = "POPCORN_DB_HOST"
	EnvDBUser = "POPCORN_DB_USER"
	EnvDBName = "POPCORN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Invites      InviteConfig
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
	Env          string `envconfig:"POPCORN_APP_ENV" required:"true"`
	Port         string `envconfig:"POPCORN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POPCORN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POPCORN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POPCORN_DB_DSN"`
	Driver string `envconfig:"POPCORN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POPCORN_DB_HOST"`
	LegacyPort     int    `envconfig:"POPCORN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POPCORN_DB_USER"`
	LegacyPassword string `envconfig:"POPCORN_DB_PASSWORD"`
	LegacyName     string `envconfig:"POPCORN_DB_NAME"`
	LegacySSLMode  string `envconfig:"POPCORN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POPCORN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POPCORN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POPCORN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POPCORN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POPCORN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POPCORN_REDIS_ADDR"`
	Password     string        `envconfig:"POPCORN_REDIS_PASSWORD"`
	DB           int           `envconfig:"POPCORN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POPCORN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POPCORN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POPCORN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POPCORN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POPCORN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"POPCORN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POPCORN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"POPCORN_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"POPCORN_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"POPCORN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"POPCORN_AUTO_MIGRATE" default:"false"`
}

type InviteConfig struct {
	TTL time.Duration `envconfig:"POPCORN_INVITE_TTL" default:"168h"`
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
