package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "SUBHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SUBHUB_DB_DSN"
	EnvDBHost = "SUBHUB_DB_HOST"
	EnvDBUser = "SUBHUB_DB_USER"
	EnvDBName = "SUBHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Razorpay      RazorpayConfig
	SMTP          SMTPConfig
	Twilio        TwilioConfig
	Notifications NotificationsConfig
	Analytics     AnalyticsConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"SUBHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUBHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUBHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUBHUB_DB_DSN"`
	Driver string `envconfig:"SUBHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUBHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SUBHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUBHUB_DB_USER"`
	LegacyPassword string `envconfig:"SUBHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUBHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUBHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUBHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUBHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUBHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUBHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUBHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SUBHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUBHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUBHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SUBHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SUBHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUBHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUBHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUBHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUBHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUBHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow             time.Duration `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit    int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"5"`
	LoginIPLimit            int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow          time.Duration `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIdentifierLimit int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_IDENTIFIER_LIMIT" default:"3"`
	RegisterIPLimit         int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SUBHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SUBHUB_AUTO_MIGRATE" default:"false"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"SUBHUB_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string `envconfig:"SUBHUB_RAZORPAY_KEY_SECRET" required:"true"`
	Currency  string `envconfig:"SUBHUB_RAZORPAY_CURRENCY" default:"INR"`
}

type SMTPConfig struct {
	Host      string `envconfig:"SUBHUB_SMTP_HOST"`
	Port      string `envconfig:"SUBHUB_SMTP_PORT" default:"587"`
	Username  string `envconfig:"SUBHUB_SMTP_USERNAME"`
	Password  string `envconfig:"SUBHUB_SMTP_PASSWORD"`
	FromName  string `envconfig:"SUBHUB_SMTP_FROM_NAME" default:"SubHub"`
	FromEmail string `envconfig:"SUBHUB_SMTP_FROM_EMAIL"`
	Secure    bool   `envconfig:"SUBHUB_SMTP_SECURE" default:"false"`
}

type TwilioConfig struct {
	AccountSID string `envconfig:"SUBHUB_TWILIO_ACCOUNT_SID"`
	AuthToken  string `envconfig:"SUBHUB_TWILIO_AUTH_TOKEN"`
	FromNumber string `envconfig:"SUBHUB_TWILIO_FROM_NUMBER"`
}

type NotificationsConfig struct {
	BroadcastPaceEvery int           `envconfig:"SUBHUB_NOTIFY_BROADCAST_PACE_EVERY" default:"10"`
	BroadcastPaceStep  time.Duration `envconfig:"SUBHUB_NOTIFY_BROADCAST_PACE_STEP" default:"1s"`
	CleanupRetention   time.Duration `envconfig:"SUBHUB_NOTIFY_CLEANUP_RETENTION" default:"2160h"`
}

type AnalyticsConfig struct {
	CacheTTL           time.Duration `envconfig:"SUBHUB_ANALYTICS_CACHE_TTL" default:"60s"`
	ChurnPeriod        time.Duration `envconfig:"SUBHUB_ANALYTICS_CHURN_PERIOD" default:"720h"`
	RecentTransactions int           `envconfig:"SUBHUB_ANALYTICS_RECENT_TRANSACTIONS" default:"10"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"SUBHUB_CRON_INTERVAL" default:"24h"`
	ReminderDays int           `envconfig:"SUBHUB_CRON_REMINDER_DAYS" default:"5"`
	AlertDueDays int           `envconfig:"SUBHUB_CRON_ALERT_DUE_DAYS" default:"7"`
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
