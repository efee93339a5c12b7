package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"

	TriggerInProcess    = "inprocess"
	TriggerChangeStream = "changestream"
)

type Config struct {
	Port      string `env:"PORT,default=8080"`
	Env       string `env:"ENV,default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogPretty bool   `env:"LOG_PRETTY,default=false"`

	StoreDriver   string `env:"STORE_DRIVER,default=mongo"`
	TriggerSource string `env:"TRIGGER_SOURCE,default=inprocess"`

	// Bootstrap admin, created at startup when absent.
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Requests per second per client IP on login and registration.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`

	Mongo      MongoConfig
	Redis      RedisConfig
	Firebase   FirebaseConfig
	SMTP       SMTPConfig
	PayOS      PayOSConfig
	Lifecycle  LifecycleConfig
	RabbitMQ   RabbitMQConfig
	Dispatcher DispatcherConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,default=travelog"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

type FirebaseConfig struct {
	ProjectID         string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile   string `env:"FIREBASE_CREDENTIALS_FILE"`
	CredentialsBase64 string `env:"FIREBASE_CREDENTIALS_BASE64"`
}

type SMTPConfig struct {
	Host     string        `env:"SMTP_HOST,default=smtp.gmail.com"`
	Port     int           `env:"SMTP_PORT,default=587"`
	User     string        `env:"SMTP_USER"`
	Pass     string        `env:"SMTP_PASS"`
	FromName string        `env:"MAIL_FROM_NAME,default=Travelog Admin"`
	Timeout  time.Duration `env:"MAIL_TIMEOUT,default=20s"`
}

type PayOSConfig struct {
	BaseURL     string        `env:"PAYOS_BASE_URL,default=https://api-merchant.payos.vn"`
	ClientID    string        `env:"PAYOS_CLIENT_ID"`
	APIKey      string        `env:"PAYOS_API_KEY"`
	ChecksumKey string        `env:"PAYOS_CHECKSUM_KEY"`
	Timeout     time.Duration `env:"PAYOS_TIMEOUT,default=15s"`
}

type LifecycleConfig struct {
	ActivationFee     int64  `env:"ACTIVATION_FEE,default=10000"`
	DescriptionPrefix string `env:"PAYMENT_DESCRIPTION_PREFIX,default=KICHHOAT"`
	AppBaseURL        string `env:"APP_BASE_URL,default=http://localhost:5173"`
	LenientSignature  bool   `env:"WEBHOOK_LENIENT_SIGNATURE,default=false"`
	OrderCodeNode     int64  `env:"ORDER_CODE_NODE,default=0"`
}

type RabbitMQConfig struct {
	URL string `env:"RABBITMQ_URL"`
}

type DispatcherConfig struct {
	Workers int `env:"DISPATCHER_WORKERS,default=8"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWith is Load with an explicit lookuper, used by tests.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with. Missing
// collaborator credentials are not fatal here; see MissingSecrets.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreFirestore:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.TriggerSource {
	case TriggerInProcess, TriggerChangeStream:
	default:
		return fmt.Errorf("config: unknown TRIGGER_SOURCE %q", c.TriggerSource)
	}
	if c.TriggerSource == TriggerChangeStream && c.StoreDriver != StoreMongo {
		return fmt.Errorf("config: TRIGGER_SOURCE=changestream requires STORE_DRIVER=mongo")
	}
	if c.StoreDriver == StoreFirestore && c.Firebase.ProjectID == "" {
		return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore store")
	}
	if c.Lifecycle.ActivationFee <= 0 {
		return fmt.Errorf("config: ACTIVATION_FEE must be positive")
	}
	if c.Lifecycle.OrderCodeNode < 0 || c.Lifecycle.OrderCodeNode > 3 {
		return fmt.Errorf("config: ORDER_CODE_NODE must be between 0 and 3")
	}
	if c.JWTSecret == "" && c.Env == "production" {
		return fmt.Errorf("config: JWT_SECRET is required in production")
	}
	return nil
}

// MissingSecrets names the collaborators that will fail with
// ErrNotConfigured at first use.
func (c *Config) MissingSecrets() []string {
	var missing []string
	if c.PayOS.ClientID == "" || c.PayOS.APIKey == "" {
		missing = append(missing, "payos_client")
	}
	if c.PayOS.ChecksumKey == "" {
		missing = append(missing, "payos_checksum")
	}
	if c.SMTP.User == "" || c.SMTP.Pass == "" {
		missing = append(missing, "smtp")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "jwt")
	}
	return missing
}
