package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	BaseURL    string

	DBDriver string
	DBDSN    string
	ResetDB  bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret string

	AdminUsername string
	AdminPassword string

	BlobBackend string
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	MailtrapAPIKey   string
	MailtrapFrom     string
	MailtrapFromName string
	MailtrapEndpoint string
	MailTimeout      time.Duration

	MaxUploadBytes int64

	SettingsCacheTTL time.Duration

	LogLevel    string
	LogFormat   string
	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		BaseURL:    normalizeBaseURL(getEnv("BASE_URL", "http://localhost:8080/")),

		DBDriver: getEnv("DB_DRIVER", "mysql"),
		DBDSN:    getEnv("DB_DSN", "geec_user:geec_password@tcp(localhost:3306)/geec_dms?charset=utf8mb4&parseTime=True&loc=Local"),
		ResetDB:  getEnvBool("RESET_DB", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		BlobBackend: getEnv("BLOB_BACKEND", "local"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:    getEnv("S3_BUCKET", "letters"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		MailtrapAPIKey:   os.Getenv("MAILTRAP_API_KEY"),
		MailtrapFrom:     getEnv("MAILTRAP_FROM_EMAIL", "no-reply@example.com"),
		MailtrapFromName: getEnv("MAILTRAP_FROM_NAME", "GEEC DMS"),
		MailtrapEndpoint: getEnv("MAILTRAP_ENDPOINT", "https://send.api.mailtrap.io/api/send"),
		MailTimeout:      getEnvDuration("MAIL_TIMEOUT", 10*time.Second),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 16*1024*1024)),

		SettingsCacheTTL: getEnvDuration("SETTINGS_CACHE_TTL", 5*time.Minute),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// normalizeBaseURL makes sure links can be built as base + "verify/...".
func normalizeBaseURL(u string) string {
	if !strings.HasSuffix(u, "/") {
		return u + "/"
	}
	return u
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
