package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Storage   StorageConfig
	S3        S3Config
	Redis     RedisConfig
	Notifier  NotifierConfig
	OTP       OTPConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds signing settings for both token kinds.
// Staff and customer tokens are signed with different secrets.
type JWTConfig struct {
	Secret             string
	CustomerSecret     string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type StorageConfig struct {
	Driver    string // local, s3
	BaseURL   string
	MediaPath string
	MediaRoot string
	MaxFileMB int64
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type NotifierConfig struct {
	Driver  string // log, kafka
	Brokers []string
	Topic   string
	From    string
}

type OTPConfig struct {
	TTL               time.Duration
	MaxRequests       int
	RequestWindow     time.Duration
	MaxVerifyAttempts int
}

type SchedulerConfig struct {
	Enabled      bool
	LowStockSpec string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "commerce"),
			Password: getEnv("DB_PASSWORD", "commerce"),
			DBName:   getEnv("DB_NAME", "commerce"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "staff-secret-key"),
			CustomerSecret:     getEnv("CUSTOMER_JWT_SECRET", "customer-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			BaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080"),
			MediaPath: getEnv("STORAGE_MEDIA_PATH", "/media/"),
			MediaRoot: getEnv("STORAGE_MEDIA_ROOT", "./media"),
			MaxFileMB: int64(parseInt(getEnv("STORAGE_MAX_FILE_MB", "5"), 5)),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "commerce-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Notifier: NotifierConfig{
			Driver:  getEnv("NOTIFIER_DRIVER", "log"),
			Brokers: parseSlice(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("NOTIFIER_TOPIC", "commerce.notifications"),
			From:    getEnv("NOTIFIER_FROM", "no-reply@storefront.local"),
		},
		OTP: OTPConfig{
			TTL:               parseDuration(getEnv("OTP_TTL", "5m"), 5*time.Minute),
			MaxRequests:       parseInt(getEnv("OTP_MAX_REQUESTS", "5"), 5),
			RequestWindow:     parseDuration(getEnv("OTP_REQUEST_WINDOW", "15m"), 15*time.Minute),
			MaxVerifyAttempts: parseInt(getEnv("OTP_MAX_VERIFY_ATTEMPTS", "5"), 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:      parseBool(getEnv("SCHEDULER_ENABLED", "true")),
			LowStockSpec: getEnv("LOW_STOCK_CRON", "0 8 * * *"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
