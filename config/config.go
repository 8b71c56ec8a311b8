package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is assembled once at startup and handed to the components that need
// it. Nothing reads the environment after Load returns.
type Config struct {
	Env          string
	SecretKey    string
	AllowedHosts []string
	BaseURL      string
	LogLevel     string
	AdminAPIKey  string

	VerifyTokenTTL     time.Duration
	LoginRatePerMinute int

	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Payment  PaymentConfig
	Email    EmailConfig
	Storage  StorageConfig
	Firebase FirebaseConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	CookieName    string
	TTL           time.Duration
	Secure        bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// PaymentConfig holds the SSLCommerz store credentials and endpoints.
type PaymentConfig struct {
	StoreID       string
	StorePassword string
	PaymentURL    string
	ValidationURL string
	Currency      string
	Country       string
	Timeout       time.Duration
}

type EmailConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	From     string
}

type StorageConfig struct {
	Driver     string
	MediaRoot  string
	MediaURL   string
	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string
	S3URL      string

	// Nightly copies of MediaRoot; empty BackupDir disables them.
	BackupDir       string
	BackupRetention time.Duration
	BackupHour      int
}

type FirebaseConfig struct {
	CredentialsJSON string
	ProjectID       string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		AllowedHosts:       getEnvList("ALLOWED_HOSTS", []string{"*"}),
		BaseURL:            strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AdminAPIKey:        os.Getenv("ADMIN_API_KEY"),
		VerifyTokenTTL:     getEnvDuration("VERIFY_TOKEN_TTL", 72*time.Hour),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MIN", 10),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "sqlite://db.sqlite3"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "sessionid"),
			TTL:           getEnvDuration("SESSION_TTL", 14*24*time.Hour),
			Secure:        getEnvBool("SESSION_COOKIE_SECURE", false),
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Payment: PaymentConfig{
			StoreID:       os.Getenv("SSLCOMMERZ_STORE_ID"),
			StorePassword: os.Getenv("SSLCOMMERZ_STORE_PASSWORD"),
			PaymentURL:    getEnv("SSLCOMMERZ_PAYMENT_URL", "https://sandbox.sslcommerz.com/gwprocess/v4/api.php"),
			ValidationURL: getEnv("SSLCOMMERZ_VALIDATION_URL", "https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php"),
			Currency:      getEnv("PAYMENT_CURRENCY", "BDT"),
			Country:       getEnv("PAYMENT_COUNTRY", "Bangladesh"),
			Timeout:       getEnvDuration("PAYMENT_TIMEOUT", 30*time.Second),
		},
		Email: EmailConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     getEnvInt("EMAIL_PORT", 587),
			UseTLS:   getEnvBool("EMAIL_USE_TLS", true),
			Username: os.Getenv("EMAIL_HOST_USER"),
			Password: os.Getenv("EMAIL_HOST_PASSWORD"),
			From:     getEnv("DEFAULT_FROM_EMAIL", "no-reply@eshop.local"),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "local"),
			MediaRoot:  getEnv("MEDIA_ROOT", "media"),
			MediaURL:   getEnv("MEDIA_URL", "/media/"),
			S3Bucket:   os.Getenv("S3_BUCKET"),
			S3Region:   getEnv("S3_REGION", "us-east-1"),
			S3Key:      os.Getenv("S3_KEY"),
			S3Secret:   os.Getenv("S3_SECRET"),
			S3Endpoint: os.Getenv("S3_ENDPOINT"),
			S3URL:      os.Getenv("S3_URL"),

			BackupDir:       os.Getenv("MEDIA_BACKUP_DIR"),
			BackupRetention: getEnvDuration("MEDIA_BACKUP_RETENTION", 4*24*time.Hour),
			BackupHour:      getEnvInt("MEDIA_BACKUP_HOUR", 2),
		},
		Firebase: FirebaseConfig{
			CredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
			ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		if c.IsProduction() {
			return errors.New("SECRET_KEY must be set in production")
		}
		c.SecretKey = "insecure-development-key"
	}
	if c.IsProduction() {
		if c.Payment.StoreID == "" || c.Payment.StorePassword == "" {
			return errors.New("SSLCOMMERZ_STORE_ID and SSLCOMMERZ_STORE_PASSWORD must be set in production")
		}
	}
	if c.Storage.Driver != "local" && c.Storage.Driver != "s3" {
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Printf("Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AbsoluteURL joins path onto BASE_URL, or onto the request's own scheme
// and host when BASE_URL is unset.
func (c *Config) AbsoluteURL(r *http.Request, path string) string {
	if c.BaseURL != "" {
		return c.BaseURL + path
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
