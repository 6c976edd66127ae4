package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// WorkflowConfig holds approval workflow settings
type WorkflowConfig struct {
	// ApprovalThreshold is the amount at or below which a single
	// approval level suffices
	ApprovalThreshold float64 `mapstructure:"approval_threshold"`
}

// PipelineConfig sizes the document processing pipeline
type PipelineConfig struct {
	QueueCapacity   int     `mapstructure:"queue_capacity"`
	WorkerCount     int     `mapstructure:"worker_count"`
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
	AcceptThreshold float64 `mapstructure:"accept_threshold"`
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

// ExtractorConfig holds the extraction model configuration. BaseURL may
// point at any OpenAI-compatible endpoint.
type ExtractorConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPages    int           `mapstructure:"max_pages"`
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// OrdersConfig holds purchase order generation configuration
type OrdersConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/procurement.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Workflow defaults
	viper.SetDefault("workflow.approval_threshold", 1000.0)

	// Pipeline defaults
	viper.SetDefault("pipeline.queue_capacity", 100)
	viper.SetDefault("pipeline.worker_count", 2)
	viper.SetDefault("pipeline.amount_tolerance", 0.05)
	viper.SetDefault("pipeline.accept_threshold", 0.85)
	viper.SetDefault("pipeline.review_threshold", 0.5)

	// Extractor defaults
	viper.SetDefault("extractor.model", "gpt-4o")
	viper.SetDefault("extractor.temperature", 0.1)
	viper.SetDefault("extractor.max_tokens", 4096)
	viper.SetDefault("extractor.timeout", 60*time.Second)
	viper.SetDefault("extractor.max_pages", 2)

	// Storage defaults
	viper.SetDefault("storage.base_dir", "data/documents")

	// Orders defaults
	viper.SetDefault("orders.output_dir", "data/purchase_orders")
	viper.SetDefault("orders.company_name", "Procurement Department")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("extractor.api_key", "OPENAI_API_KEY")
	viper.BindEnv("extractor.base_url", "OPENAI_BASE_URL")
	viper.BindEnv("extractor.model", "EXTRACTOR_MODEL")
	viper.BindEnv("orders.company_name", "COMPANY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Extractor.APIKey == "" {
		return fmt.Errorf("extractor.api_key is required")
	}

	if c.Workflow.ApprovalThreshold <= 0 {
		return fmt.Errorf("workflow.approval_threshold must be positive")
	}

	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline.queue_capacity must be positive")
	}
	if c.Pipeline.WorkerCount <= 0 {
		return fmt.Errorf("pipeline.worker_count must be positive")
	}
	if c.Pipeline.AcceptThreshold < c.Pipeline.ReviewThreshold {
		return fmt.Errorf("pipeline.accept_threshold must not be below pipeline.review_threshold")
	}

	return nil
}
