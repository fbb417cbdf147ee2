package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
}

type ServerConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AllowedOrigin string
}

type LogConfig struct {
	Level string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint    string
	Password    string
	DB          int
	DialTimeout time.Duration
}

type JWTConfig struct {
	SecretKey     string
	Algorithm     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, is loaded first without overriding variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "Bookshelf"),
		},
		Redis: RedisConfig{
			Endpoint:    getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", ""),
			Algorithm:     getEnv("JWT_ALGORITHM", "HS256"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", time.Hour),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 5*time.Hour),
		},
		Password: PasswordConfig{
			BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	if !supportedAlgorithms[c.JWT.Algorithm] {
		return fmt.Errorf("JWT_ALGORITHM %q is not supported", c.JWT.Algorithm)
	}

	if c.JWT.AccessExpiry < time.Second || c.JWT.RefreshExpiry < time.Second {
		return fmt.Errorf("token expiries must be at least 1s")
	}

	if c.JWT.RefreshExpiry < c.JWT.AccessExpiry {
		return fmt.Errorf("JWT_REFRESH_EXPIRY must not be shorter than JWT_ACCESS_EXPIRY")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
