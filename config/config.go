package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
)

type Config struct {
	Env          string
	ServerPort   int
	LogLevel     string
	StoreBackend string
	Database     DatabaseConfig
	Session      SessionConfig
	Password     PasswordConfig
	MQ           MQConfig
	Export       ExportConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	Backend      string
	CookieName   string
	SecureCookie bool
}

type PasswordConfig struct {
	// Cost is the bcrypt work factor. Zero selects the library default.
	Cost int
}

type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type ExportConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev"
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "accounts"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "accounts_db"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	sessionConfig := SessionConfig{
		Secret:       strings.TrimSpace(getEnv("SESSION_SECRET", "")),
		TTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
		Backend:      getEnv("SESSION_BACKEND", BackendPostgres),
		CookieName:   getEnv("SESSION_COOKIE", "session"),
		SecureCookie: getEnvBool("SESSION_COOKIE_SECURE", false),
	}

	mqConfig := MQConfig{
		Backend: getEnv("MQ_BACKEND", BackendNone),
		Channel: getEnv("MQ_CHANNEL", "account-events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	exportConfig := ExportConfig{
		Backend: getEnv("EXPORT_BACKEND", BackendMinio),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "account-exports"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		Env:          getEnv("ENV", ""),
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: getEnv("STORE_BACKEND", BackendPostgres),
		Database:     dbConfig,
		Session:      sessionConfig,
		Password:     PasswordConfig{Cost: getEnvInt("PASSWORD_COST", 0)},
		MQ:           mqConfig,
		Export:       exportConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil || value <= 0 {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
