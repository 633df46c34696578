package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Replicate ReplicateConfig
	Midtrans  MidtransConfig
	Storage   StorageConfig
	Otel      OtelConfig
}

type AppConfig struct {
	Port               string `envconfig:"APP_PORT" default:"3000"`
	BaseURL            string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`
	ClientURL          string `envconfig:"CLIENT_URL" default:"http://localhost:5173"`
	Environment        string `envconfig:"GO_ENV" default:"development"`
	LogFilePath        string `envconfig:"LOG_FILE_PATH" default:"logs/app.log"`
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	NatsURL            string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	RedisURL           string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	JwtSecret          string `envconfig:"JWT_SECRET" required:"true"`
	SignupCredits      int    `envconfig:"SIGNUP_CREDITS" default:"1"`
}

type DatabaseConfig struct {
	Connection string `envconfig:"DB_CONNECTION_STRING" required:"true"`
}

type SMTPConfig struct {
	Host       string `envconfig:"SMTP_HOST"`
	Port       int    `envconfig:"SMTP_PORT" default:"587"`
	Email      string `envconfig:"SMTP_EMAIL"`
	Password   string `envconfig:"SMTP_PASSWORD"`
	SenderName string `envconfig:"SMTP_SENDER_NAME" default:"RoomAI"`
}

type ReplicateConfig struct {
	APIToken     string        `envconfig:"REPLICATE_API_TOKEN"`
	BaseURL      string        `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com"`
	ModelVersion string        `envconfig:"REPLICATE_MODEL_VERSION" default:"76604baddc85b1b4616e1c6475eca080da339c8875bd4996705440484a6eac38"`
	Timeout      time.Duration `envconfig:"REPLICATE_TIMEOUT" default:"30s"`

	// Provider snapshots are reused for this long so rapid polling does not hammer the API.
	StatusCacheTTL time.Duration `envconfig:"REPLICATE_STATUS_CACHE_TTL" default:"2s"`

	// Upper bound for copying a finished output into our own storage.
	ResultFetchTimeout time.Duration `envconfig:"REPLICATE_RESULT_FETCH_TIMEOUT" default:"60s"`
}

type MidtransConfig struct {
	ServerKey    string `envconfig:"MIDTRANS_SERVER_KEY"`
	IsProduction bool   `envconfig:"MIDTRANS_IS_PRODUCTION" default:"false"`
}

type StorageConfig struct {
	// Driver is one of "local", "s3" or "cloudinary".
	Driver   string `envconfig:"STORAGE_DRIVER" default:"local"`
	LocalDir string `envconfig:"STORAGE_LOCAL_DIR" default:"./uploads"`

	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3BaseEndpoint  string `envconfig:"S3_BASE_ENDPOINT"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET"`
}

type OtelConfig struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.App.JwtSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch c.Storage.Driver {
	case "local", "s3", "cloudinary":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}
	if c.App.SignupCredits < 0 {
		return fmt.Errorf("SIGNUP_CREDITS must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ReplicateWebhookURL is the callback the provider pushes prediction updates to.
func (c *Config) ReplicateWebhookURL() string {
	return strings.TrimRight(c.App.BaseURL, "/") + "/api/webhooks/replicate"
}

func (c *Config) PaymentFinishURL() string {
	return strings.TrimRight(c.App.ClientURL, "/") + "/credits?payment=success"
}
