package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Events     EventsConfig     `mapstructure:"events"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the SQL driver. An empty URL leaves the store unconfigured.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite3
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWT            JWTConfig  `mapstructure:"jwt"`
	OIDC           OIDCConfig `mapstructure:"oidc"`
	ServiceKeyHash string     `mapstructure:"service_key_hash"` // bcrypt hash
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type OIDCConfig struct {
	IssuerURL string `mapstructure:"issuer_url"`
	ClientID  string `mapstructure:"client_id"`
}

type StorageConfig struct {
	Backend      string             `mapstructure:"backend"` // local, s3, gcs, azure
	Bucket       string             `mapstructure:"bucket"`
	Category     string             `mapstructure:"category"`
	UploadExpiry time.Duration      `mapstructure:"upload_expiry"`
	AllowedTypes []string           `mapstructure:"allowed_types"`
	S3           S3StorageConfig    `mapstructure:"s3"`
	GCS          GCSStorageConfig   `mapstructure:"gcs"`
	Azure        AzureStorageConfig `mapstructure:"azure"`
	Local        LocalStorageConfig `mapstructure:"local"`
}

type S3StorageConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GCSStorageConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type AzureStorageConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
}

type LocalStorageConfig struct {
	BasePath      string `mapstructure:"base_path"`
	PublicURL     string `mapstructure:"public_url"`
	SigningSecret string `mapstructure:"signing_secret"`
}

type ExtractionConfig struct {
	Provider   string           `mapstructure:"provider"` // documentai or remote
	Timeout    time.Duration    `mapstructure:"timeout"`
	DocumentAI DocumentAIConfig `mapstructure:"documentai"`
	Remote     RemoteConfig     `mapstructure:"remote"`
}

type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	ProcessorID     string `mapstructure:"processor_id"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type RemoteConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

type ComplianceConfig struct {
	ChilledMax float64 `mapstructure:"chilled_max"`
	FrozenMax  float64 `mapstructure:"frozen_max"`
	AmbientMax float64 `mapstructure:"ambient_max"`
}

type EventsConfig struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

type WebhooksConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures int           `mapstructure:"max_failures"` // consecutive failures before a webhook is paused
}

type RateLimitConfig struct {
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
	UploadPerMinute   int `mapstructure:"upload_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// Load reads the optional YAML file at path, then .env, then the environment.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "authenticated")
	v.SetDefault("auth.jwt.token_ttl", time.Hour)
	v.SetDefault("auth.oidc.issuer_url", "")
	v.SetDefault("auth.oidc.client_id", "")
	v.SetDefault("auth.service_key_hash", "")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.bucket", "delivery-dockets")
	v.SetDefault("storage.category", "delivery-dockets")
	v.SetDefault("storage.upload_expiry", 300*time.Second)
	v.SetDefault("storage.allowed_types", []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/heic", "application/pdf"})
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("storage.gcs.credentials_json", "")
	v.SetDefault("storage.azure.account_name", "")
	v.SetDefault("storage.azure.account_key", "")
	v.SetDefault("storage.local.base_path", "./data/uploads")
	v.SetDefault("storage.local.public_url", "http://localhost:8080")
	v.SetDefault("storage.local.signing_secret", "")

	v.SetDefault("extraction.provider", "documentai")
	v.SetDefault("extraction.timeout", 60*time.Second)
	v.SetDefault("extraction.documentai.project_id", "")
	v.SetDefault("extraction.documentai.location", "us")
	v.SetDefault("extraction.documentai.processor_id", "")
	v.SetDefault("extraction.documentai.credentials_json", "")
	v.SetDefault("extraction.documentai.credentials_file", "")
	v.SetDefault("extraction.remote.url", "")
	v.SetDefault("extraction.remote.secret", "")

	v.SetDefault("compliance.chilled_max", 4.0)
	v.SetDefault("compliance.frozen_max", -18.0)
	v.SetDefault("compliance.ambient_max", 25.0)

	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "docketflow.events")
	v.SetDefault("events.pubsub.project_id", "")
	v.SetDefault("events.pubsub.topic", "")
	v.SetDefault("events.webhooks.enabled", true)
	v.SetDefault("events.webhooks.timeout", 10*time.Second)
	v.SetDefault("events.webhooks.max_failures", 10)

	v.SetDefault("rate_limit.api_read_per_minute", 1000)
	v.SetDefault("rate_limit.api_write_per_minute", 100)
	v.SetDefault("rate_limit.upload_per_minute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}
