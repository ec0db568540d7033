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

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Returns      ReturnsConfig
	Webhooks     WebhooksConfig
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
	Env          string `envconfig:"STITCHFIELD_APP_ENV" required:"true"`
	Port         string `envconfig:"STITCHFIELD_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STITCHFIELD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STITCHFIELD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STITCHFIELD_DB_DSN"`

	Host     string `envconfig:"STITCHFIELD_DB_HOST"`
	Port     int    `envconfig:"STITCHFIELD_DB_PORT" default:"5432"`
	User     string `envconfig:"STITCHFIELD_DB_USER"`
	Password string `envconfig:"STITCHFIELD_DB_PASSWORD"`
	Name     string `envconfig:"STITCHFIELD_DB_NAME"`
	SSLMode  string `envconfig:"STITCHFIELD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STITCHFIELD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STITCHFIELD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STITCHFIELD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STITCHFIELD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STITCHFIELD_REDIS_URL"`
	Address      string        `envconfig:"STITCHFIELD_REDIS_ADDR"`
	Password     string        `envconfig:"STITCHFIELD_REDIS_PASSWORD"`
	DB           int           `envconfig:"STITCHFIELD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STITCHFIELD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STITCHFIELD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STITCHFIELD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STITCHFIELD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STITCHFIELD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STITCHFIELD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STITCHFIELD_JWT_ISSUER" default:"stitchfield"`
	ExpirationMinutes int    `envconfig:"STITCHFIELD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SquareConfig struct {
	AccessToken   string `envconfig:"STITCHFIELD_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"STITCHFIELD_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"STITCHFIELD_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"STITCHFIELD_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment.
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ReturnsConfig struct {
	WindowDays int `envconfig:"STITCHFIELD_RETURNS_WINDOW_DAYS" default:"30"`
}

// Window returns the return eligibility window as a duration.
func (r ReturnsConfig) Window() time.Duration {
	days := r.WindowDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

type WebhooksConfig struct {
	ReplayGuardTTL time.Duration `envconfig:"STITCHFIELD_WEBHOOK_REPLAY_GUARD_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STITCHFIELD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for _, pair := range []struct {
		env   string
		value string
	}{
		{"STITCHFIELD_DB_HOST", db.Host},
		{"STITCHFIELD_DB_USER", db.User},
		{"STITCHFIELD_DB_NAME", db.Name},
	} {
		if pair.value == "" {
			missing = append(missing, pair.env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either STITCHFIELD_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
