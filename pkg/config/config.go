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
	HTTP          HTTPConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Policy        PolicyConfig
	Bootstrap     BootstrapConfig
	Idempotency   IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRESHCART_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHCART_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FRESHCART_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FRESHCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"FRESHCART_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"FRESHCART_HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"FRESHCART_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"FRESHCART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LoginPath       string        `envconfig:"FRESHCART_LOGIN_PATH" default:"/login"`
}

type DBConfig struct {
	DSN    string `envconfig:"FRESHCART_DB_DSN"`
	Driver string `envconfig:"FRESHCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRESHCART_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESHCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESHCART_DB_USER"`
	LegacyPassword string `envconfig:"FRESHCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESHCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESHCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHCART_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHCART_REDIS_WRITE_TIMEOUT" default:"5s"`
	RoleCacheTTL time.Duration `envconfig:"FRESHCART_REDIS_ROLE_CACHE_TTL" default:"15m"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FRESHCART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FRESHCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FRESHCART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FRESHCART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FRESHCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FRESHCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FRESHCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FRESHCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FRESHCART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FRESHCART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FRESHCART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FRESHCART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FRESHCART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FRESHCART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FRESHCART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FRESHCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FRESHCART_AUTO_MIGRATE" default:"false"`
}

// PolicyConfig holds the order policy switches that the business has not settled on.
type PolicyConfig struct {
	RestockOnCancel            bool          `envconfig:"FRESHCART_POLICY_RESTOCK_ON_CANCEL" default:"false"`
	ExclusivePartnerAssignment bool          `envconfig:"FRESHCART_POLICY_EXCLUSIVE_PARTNER_ASSIGNMENT" default:"false"`
	DeliveryETA                time.Duration `envconfig:"FRESHCART_POLICY_DELIVERY_ETA" default:"45m"`
	LowStockThreshold          int           `envconfig:"FRESHCART_POLICY_LOW_STOCK_THRESHOLD" default:"5"`
}

type BootstrapConfig struct {
	OwnerEmail    string `envconfig:"FRESHCART_BOOTSTRAP_OWNER_EMAIL"`
	OwnerPassword string `envconfig:"FRESHCART_BOOTSTRAP_OWNER_PASSWORD"`
	OwnerName     string `envconfig:"FRESHCART_BOOTSTRAP_OWNER_NAME" default:"Store Owner"`
}

type IdempotencyConfig struct {
	TTL         time.Duration `envconfig:"FRESHCART_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"FRESHCART_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
	LockTTL     time.Duration `envconfig:"FRESHCART_IDEMPOTENCY_LOCK_TTL" default:"30s"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = "sqlite"
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
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
