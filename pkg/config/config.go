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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Idempotency  IdempotencyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Inventory    InventoryConfig
	Metrics      MetricsConfig
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
	Env          string `envconfig:"INVCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"INVCORE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"INVCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INVCORE_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"INVCORE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"INVCORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"INVCORE_DB_DSN"`
	Driver string `envconfig:"INVCORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INVCORE_DB_HOST"`
	LegacyPort     int    `envconfig:"INVCORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INVCORE_DB_USER"`
	LegacyPassword string `envconfig:"INVCORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"INVCORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"INVCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INVCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INVCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INVCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INVCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"INVCORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"INVCORE_REDIS_ADDR"`
	Password     string        `envconfig:"INVCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"INVCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INVCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INVCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INVCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INVCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INVCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"INVCORE_AUTO_MIGRATE" default:"false"`
}

type IdempotencyConfig struct {
	CommandTTL time.Duration `envconfig:"INVCORE_IDEMPOTENCY_COMMAND_TTL" default:"24h"`
	PaymentTTL time.Duration `envconfig:"INVCORE_IDEMPOTENCY_PAYMENT_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"INVCORE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"INVCORE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"INVCORE_PUBSUB_ORDERS_TOPIC" default:"inv-order-events"`
	BillingTopic      string `envconfig:"INVCORE_PUBSUB_BILLING_TOPIC" default:"inv-billing-events"`
	NotificationTopic string `envconfig:"INVCORE_PUBSUB_NOTIFICATION_TOPIC" default:"inv-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"INVCORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"INVCORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"INVCORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"INVCORE_OUTBOX_RETENTION_DAYS" default:"30"`
}

// PollInterval converts the millisecond setting into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"INVCORE_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"INVCORE_CRON_LOCK_TTL" default:"10m"`
	JobTimeout time.Duration `envconfig:"INVCORE_CRON_JOB_TIMEOUT" default:"15m"`
}

// MetricsConfig controls the standalone /metrics listener used by the workers.
// The API serves /metrics on its own router.
type MetricsConfig struct {
	Addr string `envconfig:"INVCORE_METRICS_ADDR" default:":9090"`
}

type InventoryConfig struct {
	AuditBatchSize    int `envconfig:"INVCORE_INVENTORY_AUDIT_BATCH_SIZE" default:"200"`
	LowStockScanLimit int `envconfig:"INVCORE_INVENTORY_LOW_STOCK_SCAN_LIMIT" default:"500"`
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
