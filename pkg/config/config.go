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
	Offer        OfferConfig
	Payout       PayoutConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"PRINTMITRA_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTMITRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTMITRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTMITRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTMITRA_DB_DSN"`
	Driver string `envconfig:"PRINTMITRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRINTMITRA_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTMITRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTMITRA_DB_USER"`
	LegacyPassword string `envconfig:"PRINTMITRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTMITRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTMITRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTMITRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTMITRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTMITRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTMITRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTMITRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRINTMITRA_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTMITRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTMITRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTMITRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTMITRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTMITRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTMITRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTMITRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OfferConfig bounds the vendor acceptance window and the offer cascade.
type OfferConfig struct {
	Window       time.Duration `envconfig:"PRINTMITRA_OFFER_WINDOW" default:"2m"`
	MaxAttempts  int           `envconfig:"PRINTMITRA_OFFER_MAX_ATTEMPTS" default:"3"`
	SweepEvery   time.Duration `envconfig:"PRINTMITRA_OFFER_SWEEP_INTERVAL" default:"30s"`
	SearchRadius float64       `envconfig:"PRINTMITRA_OFFER_SEARCH_RADIUS_KM" default:"10"`
}

// PayoutConfig drives the periodic payout settlement batch.
type PayoutConfig struct {
	BatchInterval time.Duration `envconfig:"PRINTMITRA_PAYOUT_BATCH_INTERVAL" default:"168h"`
	Period        string        `envconfig:"PRINTMITRA_PAYOUT_PERIOD" default:"weekly"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRINTMITRA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PRINTMITRA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRINTMITRA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PRINTMITRA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRINTMITRA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic         string `envconfig:"PRINTMITRA_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription  string `envconfig:"PRINTMITRA_PUBSUB_ORDERS_SUBSCRIPTION"`
	OffersTopic         string `envconfig:"PRINTMITRA_PUBSUB_OFFERS_TOPIC" required:"true"`
	PayoutsTopic        string `envconfig:"PRINTMITRA_PUBSUB_PAYOUTS_TOPIC" required:"true"`
	PayoutsSubscription string `envconfig:"PRINTMITRA_PUBSUB_PAYOUTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PRINTMITRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PRINTMITRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PRINTMITRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
