package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      *AppConfig      `yaml:"app"`
	Database *DatabaseConfig `yaml:"database"`
	Redis    *RedisConfig    `yaml:"redis"`
	SMS      *SMSConfig      `yaml:"sms"`
	Push     *PushConfig     `yaml:"push"`
	Maps     *MapsConfig     `yaml:"maps"`
	Security *SecurityConfig `yaml:"security"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

type SecurityConfig struct {
	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

func Load() (*Config, error) {
	config := &Config{
		App:      loadAppConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		SMS:      loadSMSConfig(),
		Push:     loadPushConfig(),
		Maps:     loadMapsConfig(),
		Security: loadSecurityConfig(),
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "CampusRide"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "0.0.0.0"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
