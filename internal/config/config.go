package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Signing secrets for access and refresh tokens. Deliberately no
	// development fallback: a missing secret is a startup failure, not a
	// silently insecure default.
	AccessTokenSecret  string
	RefreshTokenSecret string

	RedisAddr string

	AllowedOrigins []string

	// MinIO/S3 configuration for image uploads
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() *Config {
	minioUseSSL, _ := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "false"))

	return &Config{
		ServerAddr:         getEnvOrDefault("SERVER_ADDR", ":5000"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		DBHost:             getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:             getEnvOrDefault("DB_PORT", "5432"),
		DBUser:             getEnvOrDefault("DB_USER", "devfolio"),
		DBPassword:         getEnvOrDefault("DB_PASSWORD", "devfolio_dev_password"),
		DBName:             getEnvOrDefault("DB_NAME", "devfolio"),
		AccessTokenSecret:  os.Getenv("JWT_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		AllowedOrigins: []string{
			getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		},
		MinioEndpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET", "devfolio-images"),
		MinioUseSSL:    minioUseSSL,
	}
}

// Validate checks the parts of the configuration that must not fall back to
// defaults. Both token secrets are required and must differ, otherwise a
// refresh token would verify as an access token.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RefreshTokenSecret == "" {
		return errors.New("REFRESH_TOKEN_SECRET is required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
