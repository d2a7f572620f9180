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
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Mailer   MailerConfig
	Campaign CampaignConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
}

type MailerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type CampaignConfig struct {
	StalenessDays int
	SendDelay     time.Duration
	CronSpec      string
	CronEnabled   bool
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "atelier"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Mailer: MailerConfig{
			BaseURL: getEnv("MAILER_BASE_URL", ""),
			APIKey:  getEnv("MAILER_API_KEY", ""),
			Timeout: time.Duration(getEnvAsInt("MAILER_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		Campaign: CampaignConfig{
			StalenessDays: getEnvAsInt("CAMPAIGN_STALENESS_DAYS", 7),
			SendDelay:     time.Duration(getEnvAsInt("CAMPAIGN_SEND_DELAY_MS", 600)) * time.Millisecond,
			CronSpec:      getEnv("CAMPAIGN_CRON_SPEC", "0 0 9 * * *"),
			CronEnabled:   getEnvAsBool("CAMPAIGN_CRON_ENABLED", false),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	if c.Campaign.StalenessDays < 0 {
		return fmt.Errorf("CAMPAIGN_STALENESS_DAYS must not be negative")
	}

	if c.Campaign.SendDelay < 0 {
		return fmt.Errorf("CAMPAIGN_SEND_DELAY_MS must not be negative")
	}

	return nil
}

// PgxDSN returns the pgx connection string, falling back to the discrete
// host/port fields when DB_DSN is not set.
func (c *DatabaseConfig) PgxDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
