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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Marketplace  MarketplaceConfig
	Settlement   SettlementConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ASSIGNMENTPOINT_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSIGNMENTPOINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSIGNMENTPOINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSIGNMENTPOINT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ASSIGNMENTPOINT_LOG_FORMAT" default:"json"`

	// CORSOrigins is a comma separated list of browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"ASSIGNMENTPOINT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"ASSIGNMENTPOINT_DB_DSN"`
	Driver string `envconfig:"ASSIGNMENTPOINT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSIGNMENTPOINT_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSIGNMENTPOINT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSIGNMENTPOINT_DB_USER"`
	LegacyPassword string `envconfig:"ASSIGNMENTPOINT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSIGNMENTPOINT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSIGNMENTPOINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSIGNMENTPOINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSIGNMENTPOINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSIGNMENTPOINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSIGNMENTPOINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"ASSIGNMENTPOINT_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
	// TxAttempts is how often WithTx runs a transaction that hit a serialization failure.
	TxAttempts int `envconfig:"ASSIGNMENTPOINT_DB_TX_ATTEMPTS" default:"3"`
}

// IsSQLite reports whether the configured driver targets the embedded sqlite database.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSIGNMENTPOINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASSIGNMENTPOINT_REDIS_ADDR"`
	Password     string        `envconfig:"ASSIGNMENTPOINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSIGNMENTPOINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSIGNMENTPOINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSIGNMENTPOINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSIGNMENTPOINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSIGNMENTPOINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSIGNMENTPOINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASSIGNMENTPOINT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASSIGNMENTPOINT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ASSIGNMENTPOINT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASSIGNMENTPOINT_AUTO_MIGRATE" default:"false"`
}

// MarketplaceConfig carries the bidding policy knobs.
type MarketplaceConfig struct {
	DefaultBidPercent    int64         `envconfig:"ASSIGNMENTPOINT_BID_DEFAULT_PERCENT" default:"75"`
	DefaultDeliveryHours int           `envconfig:"ASSIGNMENTPOINT_BID_DEFAULT_DELIVERY_HOURS" default:"72"`
	Currency             string        `envconfig:"ASSIGNMENTPOINT_CURRENCY" default:"USD"`
	BidRateLimit         int           `envconfig:"ASSIGNMENTPOINT_BID_RATE_LIMIT" default:"30"`
	BidRateWindow        time.Duration `envconfig:"ASSIGNMENTPOINT_BID_RATE_WINDOW" default:"1m"`
}

// SettlementConfig holds the fallback split used when no writer revenue rule is active.
type SettlementConfig struct {
	AllowDefaultSplit      bool   `envconfig:"ASSIGNMENTPOINT_SETTLEMENT_ALLOW_DEFAULT_SPLIT" default:"false"`
	DefaultWriterPct       string `envconfig:"ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_WRITER_PCT" default:"40"`
	DefaultSalesAgentPct   string `envconfig:"ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_SALES_AGENT_PCT" default:"15"`
	DefaultManagerPct      string `envconfig:"ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_MANAGER_PCT" default:"15"`
	DefaultEditorPct       string `envconfig:"ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_EDITOR_PCT" default:"0"`
	PlatformAccountOwnerID string `envconfig:"ASSIGNMENTPOINT_PLATFORM_ACCOUNT_OWNER_ID" default:"00000000-0000-0000-0000-000000000001"`
}

func (s SettlementConfig) validate() error {
	for name, value := range map[string]string{
		EnvSettlementWriterPct:  s.DefaultWriterPct,
		EnvSettlementAgentPct:   s.DefaultSalesAgentPct,
		EnvSettlementManagerPct: s.DefaultManagerPct,
		EnvSettlementEditorPct:  s.DefaultEditorPct,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"ASSIGNMENTPOINT_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASSIGNMENTPOINT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ASSIGNMENTPOINT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASSIGNMENTPOINT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"ASSIGNMENTPOINT_PUBSUB_DOMAIN_TOPIC" default:"ap-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ASSIGNMENTPOINT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ASSIGNMENTPOINT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ASSIGNMENTPOINT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ASSIGNMENTPOINT_STRIPE_API_KEY"`
	Secret string `envconfig:"ASSIGNMENTPOINT_STRIPE_SECRET"`
	Env    string `envconfig:"ASSIGNMENTPOINT_STRIPE_ENV" default:"test"`
	// MaxNetworkRetries bounds stripe-go's own retries of idempotent API calls.
	MaxNetworkRetries int64 `envconfig:"ASSIGNMENTPOINT_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
