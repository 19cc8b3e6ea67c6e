package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database backends
const (
	DatabaseMongo  = "mongo"
	DatabaseMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Geo      GeoConfig      `mapstructure:"geo"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Meili    MeiliConfig    `mapstructure:"meili"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Version        string   `mapstructure:"version"`
}

// IsDevelopment reports whether the server runs in development mode.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// DatabaseConfig holds catalog store configuration
type DatabaseConfig struct {
	Type    string        `mapstructure:"type"` // "mongo" or "memory"
	URI     string        `mapstructure:"uri"`
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds catalog search configuration
type SearchConfig struct {
	DefaultLimit    int           `mapstructure:"default_limit"`
	CategoriesLimit int           `mapstructure:"categories_limit"`
	TextIndexName   string        `mapstructure:"text_index_name"`
	VisibilityTTL   time.Duration `mapstructure:"visibility_ttl"`
}

// GeoConfig holds geolocation API configuration
type GeoConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Enabled reports whether store lookups can reach the geolocation API.
func (g GeoConfig) Enabled() bool {
	return g.APIKey != ""
}

// OpenAIConfig holds embedding and categorization provider configuration
type OpenAIConfig struct {
	APIKey               string `mapstructure:"api_key"`
	BaseURL              string `mapstructure:"base_url"`
	EmbeddingModel       string `mapstructure:"embedding_model"`
	ChatModel            string `mapstructure:"chat_model"`
	EnableEmbeddings     bool   `mapstructure:"enable_embeddings"`
	EnableCategorization bool   `mapstructure:"enable_categorization"`
}

// MeiliConfig holds the optional Meilisearch mirror configuration
type MeiliConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Index  string `mapstructure:"index"`
}

// Enabled reports whether the mirror is configured.
func (m MeiliConfig) Enabled() bool {
	return m.URL != ""
}

// IngestConfig holds bulk ingestion configuration
type IngestConfig struct {
	Workers         int    `mapstructure:"workers"`
	DefaultCurrency string `mapstructure:"default_currency"`
}

// Load loads configuration from an optional .env file, environment variables and config files.
// A named envFile must exist; otherwise ./.env is loaded when present.
func Load(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// PRICELENS_DATABASE_URI -> database.uri
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func loadDotEnv(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.version", "dev")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Database defaults
	v.SetDefault("database.type", DatabaseMemory)
	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "pricelens")
	v.SetDefault("database.timeout", "10s")

	// Search defaults
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.categories_limit", 20)
	v.SetDefault("search.text_index_name", "product_text_search")
	v.SetDefault("search.visibility_ttl", "1m")

	// Geo defaults
	v.SetDefault("geo.api_key", "")
	v.SetDefault("geo.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("geo.requests_per_second", 10)
	v.SetDefault("geo.burst", 5)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.enable_embeddings", false)
	v.SetDefault("openai.enable_categorization", false)

	// Meilisearch defaults
	v.SetDefault("meili.url", "")
	v.SetDefault("meili.api_key", "")
	v.SetDefault("meili.index", "products")

	// Ingest defaults
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.default_currency", "JMD")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Database.Type {
	case DatabaseMemory:
	case DatabaseMongo:
		if config.Database.URI == "" {
			return fmt.Errorf("database URI is required when database type is 'mongo' (set PRICELENS_DATABASE_URI)")
		}
		if config.Database.Name == "" {
			return fmt.Errorf("database name is required when database type is 'mongo'")
		}
	default:
		return fmt.Errorf("database type must be 'mongo' or 'memory', got: %s", config.Database.Type)
	}

	if (config.OpenAI.EnableEmbeddings || config.OpenAI.EnableCategorization) && config.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required when embeddings or categorization are enabled (set PRICELENS_OPENAI_API_KEY)")
	}

	if config.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search default limit must be positive, got: %d", config.Search.DefaultLimit)
	}

	if config.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest workers must be positive, got: %d", config.Ingest.Workers)
	}

	if len(config.Ingest.DefaultCurrency) != 3 {
		return fmt.Errorf("ingest default currency must be a 3-letter code, got: %q", config.Ingest.DefaultCurrency)
	}

	return nil
}
