package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

// DatabaseConfig MySQL settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// RedisConfig Redis settings
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StorageConfig S3-compatible blob storage settings
type StorageConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	CDNURL          string `yaml:"cdn_url"`
	BasePath        string `yaml:"base_path"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// JWTConfig token verification settings
type JWTConfig struct {
	Secret        string `yaml:"secret"`
	Issuer        string `yaml:"issuer"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
}

// CORSConfig allowed origins
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// LoadDotEnv loads local env files before Load runs. .env.local wins over
// .env, and variables already present in the OS environment beat both
// (godotenv never overwrites). Returns the files actually loaded.
func LoadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		loaded = append(loaded, f)
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

// Load reads a yaml config file and applies environment overrides.
// A missing file is not fatal: env vars alone can configure the service.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required (JWT_SECRET)")
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8082, Env: "local"},
		Database: DatabaseConfig{
			Host: "127.0.0.1",
			Port: 3306,
			User: "angple",
			Name: "angple_chat",
		},
		Redis:   RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 10},
		Storage: StorageConfig{Region: "auto", BasePath: "chat/"},
		JWT:     JWTConfig{Issuer: "angple", ExpiryMinutes: 60},
		CORS:    CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
	}
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Env, "APP_ENV")
	overrideInt(&cfg.Server.Port, "PORT")

	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.User, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.Name, "DB_NAME")

	overrideString(&cfg.Redis.Host, "REDIS_HOST")
	overrideInt(&cfg.Redis.Port, "REDIS_PORT")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.Redis.DB, "REDIS_DB")

	overrideString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	overrideString(&cfg.Storage.Region, "S3_REGION")
	overrideString(&cfg.Storage.AccessKeyID, "S3_ACCESS_KEY_ID")
	overrideString(&cfg.Storage.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	overrideString(&cfg.Storage.Bucket, "S3_BUCKET")
	overrideString(&cfg.Storage.CDNURL, "S3_CDN_URL")

	overrideString(&cfg.JWT.Secret, "JWT_SECRET")
	overrideString(&cfg.JWT.Issuer, "JWT_ISSUER")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
