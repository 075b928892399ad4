package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bakery_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server and the CLI.
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	DBDriver     string // postgres or sqlite3
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	SQLitePath   string
	CORSOrigins  []string
	JWTSecret    string
	TokenTTL     time.Duration
	AdminUser    string
	AdminPass    string
	TxMaxRetries int

	SalesWindowDays   int
	RecipeDeleteGuard bool
	ReadinessTimeout  time.Duration

	LLMProvider    string // gemini, openai or none
	LLMTimeout     time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIEndpoint string
	OpenAIAPIKey   string
	OpenAIModel    string

	R2Endpoint      string
	R2AccessKey     string
	R2SecretKey     string
	R2Bucket        string
	R2PublicBaseURL string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.LogDebug("No .env file loaded", map[string]interface{}{"reason": err.Error()})
	}

	cfg := &Config{
		Port:      utils.Getenv("PORT", "8080"),
		GinMode:   utils.Getenv("GIN_MODE", "debug"),
		LogLevel:  utils.Getenv("LOG_LEVEL", "info"),
		LogFormat: utils.Getenv("LOG_FORMAT", "console"),

		DBDriver:     strings.ToLower(utils.Getenv("DB_DRIVER", "postgres")),
		DBHost:       utils.Getenv("DB_HOST", "localhost"),
		DBPort:       utils.Getenv("DB_PORT", "5432"),
		DBUser:       utils.Getenv("DB_USER", "postgres"),
		DBPassword:   utils.Getenv("DB_PASSWORD", "postgres"),
		DBName:       utils.Getenv("DB_NAME", "bakery"),
		DBSSLMode:    utils.Getenv("DB_SSLMODE", "disable"),
		SQLitePath:   utils.Getenv("SQLITE_PATH", "bakery.db"),
		CORSOrigins:  utils.GetenvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		JWTSecret:    utils.Getenv("JWT_SECRET_KEY", ""),
		TokenTTL:     utils.GetenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		AdminUser:    utils.Getenv("ADMIN_USERNAME", ""),
		AdminPass:    utils.Getenv("ADMIN_PASSWORD", ""),
		TxMaxRetries: utils.GetenvInt("TX_MAX_RETRIES", 3),

		SalesWindowDays:   utils.GetenvInt("SALES_WINDOW_DAYS", 30),
		RecipeDeleteGuard: utils.GetenvBool("RECIPE_DELETE_GUARD", true),
		ReadinessTimeout:  utils.GetenvDuration("READINESS_TIMEOUT", 10*time.Second),

		LLMProvider:    strings.ToLower(utils.Getenv("LLM_PROVIDER", "none")),
		LLMTimeout:     utils.GetenvDuration("LLM_TIMEOUT", 20*time.Second),
		GeminiAPIKey:   utils.Getenv("GEMINI_API_KEY", ""),
		GeminiModel:    utils.Getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIEndpoint: utils.Getenv("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		OpenAIAPIKey:   utils.Getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    utils.Getenv("OPENAI_MODEL", "gpt-4o-mini"),

		R2Endpoint:      utils.Getenv("R2_ENDPOINT", ""),
		R2AccessKey:     utils.Getenv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:     utils.Getenv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:        utils.Getenv("R2_BUCKET", ""),
		R2PublicBaseURL: utils.Getenv("R2_PUBLIC_BASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", c.DBDriver))
	}
	switch c.LLMProvider {
	case "none", "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be gemini, openai or none, got %q", c.LLMProvider))
	}
	if c.TxMaxRetries < 0 {
		errs = append(errs, errors.New("TX_MAX_RETRIES must not be negative"))
	}
	if c.SalesWindowDays <= 0 {
		errs = append(errs, errors.New("SALES_WINDOW_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite3" {
		return SQLiteDSN(c.SQLitePath)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// SQLiteDSN builds a go-sqlite3 DSN whose transactions take the write lock on BEGIN.
func SQLiteDSN(path string) string {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	return "file:" + path + "?" + params.Encode()
}

// BackupEnabled reports whether object storage credentials are present.
func (c *Config) BackupEnabled() bool {
	return c.R2Endpoint != "" && c.R2Bucket != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}
