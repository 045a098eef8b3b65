package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable read by envconfig.
	EnvPrefix = "STUDYASSIST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "STUDYASSIST_DB_DSN"
	EnvDBHost = "STUDYASSIST_DB_HOST"
	EnvDBUser = "STUDYASSIST_DB_USER"
	EnvDBName = "STUDYASSIST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	YooKassa      YooKassaConfig
	Telegram      TelegramConfig
	Resend        ResendConfig
	Chat          ChatConfig
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
	Env          string `envconfig:"STUDYASSIST_APP_ENV" required:"true"`
	Port         string `envconfig:"STUDYASSIST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STUDYASSIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STUDYASSIST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STUDYASSIST_DB_DSN"`
	Driver string `envconfig:"STUDYASSIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STUDYASSIST_DB_HOST"`
	LegacyPort     int    `envconfig:"STUDYASSIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STUDYASSIST_DB_USER"`
	LegacyPassword string `envconfig:"STUDYASSIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"STUDYASSIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"STUDYASSIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STUDYASSIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STUDYASSIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STUDYASSIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STUDYASSIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STUDYASSIST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STUDYASSIST_REDIS_ADDR"`
	Password     string        `envconfig:"STUDYASSIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"STUDYASSIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STUDYASSIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STUDYASSIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STUDYASSIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STUDYASSIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STUDYASSIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STUDYASSIST_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STUDYASSIST_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STUDYASSIST_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STUDYASSIST_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STUDYASSIST_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STUDYASSIST_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STUDYASSIST_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STUDYASSIST_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STUDYASSIST_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	LeadWindow         time.Duration `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_LEAD_WINDOW" default:"5m"`
	LeadIPLimit        int           `envconfig:"STUDYASSIST_AUTH_RATE_LIMIT_LEAD_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STUDYASSIST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STUDYASSIST_AUTO_MIGRATE" default:"false"`
}

type YooKassaConfig struct {
	ShopID        string        `envconfig:"STUDYASSIST_YOOKASSA_SHOP_ID"`
	SecretKey     string        `envconfig:"STUDYASSIST_YOOKASSA_SECRET_KEY"`
	WebhookSecret string        `envconfig:"STUDYASSIST_YOOKASSA_WEBHOOK_SECRET"`
	ReturnURL     string        `envconfig:"STUDYASSIST_YOOKASSA_RETURN_URL"`
	SendReceipt   bool          `envconfig:"STUDYASSIST_YOOKASSA_SEND_RECEIPT" default:"false"`
	Timeout       time.Duration `envconfig:"STUDYASSIST_YOOKASSA_TIMEOUT" default:"10s"`
	EventTTL      time.Duration `envconfig:"STUDYASSIST_YOOKASSA_EVENT_TTL" default:"168h"`
}

// Enabled reports whether the payment gateway credentials are configured.
func (y YooKassaConfig) Enabled() bool {
	return strings.TrimSpace(y.ShopID) != "" && strings.TrimSpace(y.SecretKey) != ""
}

type TelegramConfig struct {
	BotToken string `envconfig:"STUDYASSIST_TELEGRAM_BOT_TOKEN"`
	ChatID   string `envconfig:"STUDYASSIST_TELEGRAM_CHAT_ID"`
}

// Enabled reports whether lead relay to Telegram is configured.
func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChatID) != ""
}

type ResendConfig struct {
	APIKey  string        `envconfig:"STUDYASSIST_RESEND_API_KEY"`
	From    string        `envconfig:"STUDYASSIST_RESEND_FROM"`
	LeadsTo string        `envconfig:"STUDYASSIST_RESEND_LEADS_TO"`
	Timeout time.Duration `envconfig:"STUDYASSIST_RESEND_TIMEOUT" default:"10s"`
}

// Enabled reports whether the lead email copy is configured.
func (r ResendConfig) Enabled() bool {
	return strings.TrimSpace(r.APIKey) != "" && strings.TrimSpace(r.LeadsTo) != ""
}

type ChatConfig struct {
	StreamHeartbeat time.Duration `envconfig:"STUDYASSIST_CHAT_STREAM_HEARTBEAT" default:"25s"`
	MaxMessageChars int           `envconfig:"STUDYASSIST_CHAT_MAX_MESSAGE_CHARS" default:"4000"`
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
