package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "PHARMADESK_DB_DSN"
	EnvDBHost = "PHARMADESK_DB_HOST"
	EnvDBUser = "PHARMADESK_DB_USER"
	EnvDBName = "PHARMADESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Quota        QuotaConfig
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
	Env          string `envconfig:"PHARMADESK_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMADESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHARMADESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMADESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMADESK_DB_DSN"`
	Driver string `envconfig:"PHARMADESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHARMADESK_DB_HOST"`
	LegacyPort     int    `envconfig:"PHARMADESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHARMADESK_DB_USER"`
	LegacyPassword string `envconfig:"PHARMADESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHARMADESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHARMADESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMADESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMADESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMADESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMADESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMADESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMADESK_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMADESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMADESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMADESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMADESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMADESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMADESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMADESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PHARMADESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PHARMADESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PHARMADESK_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PHARMADESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PHARMADESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PHARMADESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PHARMADESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PHARMADESK_ARGON_KEY_LEN" default:"32"`
}

type QuotaConfig struct {
	// DefaultDailyBills applies when a store has no subscription row yet.
	DefaultDailyBills int           `envconfig:"PHARMADESK_QUOTA_DEFAULT_DAILY_BILLS" default:"30"`
	CounterTTL        time.Duration `envconfig:"PHARMADESK_QUOTA_COUNTER_TTL" default:"48h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHARMADESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHARMADESK_AUTO_MIGRATE" default:"false"`
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
