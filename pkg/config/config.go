package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Store         StoreConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.JWT.AdminSecret == "" {
		return nil, fmt.Errorf("%s is required", EnvJWTAdminSecret)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RVSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"RVSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RVSTORE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"RVSTORE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"RVSTORE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"RVSTORE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RVSTORE_DB_DSN"`
	Driver string `envconfig:"RVSTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RVSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"RVSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RVSTORE_DB_USER"`
	LegacyPassword string `envconfig:"RVSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RVSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RVSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RVSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RVSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RVSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RVSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RVSTORE_REDIS_URL"`
	Address      string        `envconfig:"RVSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"RVSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RVSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RVSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RVSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RVSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RVSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RVSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RVSTORE_JWT_SECRET" required:"true"`
	AdminSecret            string `envconfig:"RVSTORE_JWT_ADMIN_SECRET"`
	Issuer                 string `envconfig:"RVSTORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RVSTORE_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"RVSTORE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// ForAdmin returns a copy whose signing secret is the admin secret.
func (j JWTConfig) ForAdmin() JWTConfig {
	admin := j
	admin.Secret = j.AdminSecret
	return admin
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RVSTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RVSTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RVSTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RVSTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RVSTORE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"RVSTORE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"RVSTORE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"RVSTORE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"RVSTORE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"RVSTORE_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"RVSTORE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"RVSTORE_AUTO_MIGRATE" default:"false"`
	ExposeMetrics bool `envconfig:"RVSTORE_EXPOSE_METRICS" default:"true"`
}

// StoreConfig holds the knobs of the vending store itself.
type StoreConfig struct {
	MaxPurchaseCount int    `envconfig:"RVSTORE_MAX_PURCHASE_COUNT" default:"100"`
	FallbackMargin   string `envconfig:"RVSTORE_FALLBACK_MARGIN" default:"0.05"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
