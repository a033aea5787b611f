package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/billdesk/bill-audit/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Validation ValidationConfig `mapstructure:"validation"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Report     ReportConfig     `mapstructure:"report"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds sqlite configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LLMConfig holds configuration for the OpenAI-compatible endpoint used
// for field extraction, address embeddings and policy adjudication.
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float32       `mapstructure:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ValidationConfig carries the signal thresholds and the category-class
// policy. Both are business policy, configurable per deployment.
type ValidationConfig struct {
	NameThreshold    int      `mapstructure:"name_threshold"`
	AddressThreshold float64  `mapstructure:"address_threshold"`
	DailyCategories  []string `mapstructure:"daily_categories"`
}

// AuditConfig holds batch run configuration
type AuditConfig struct {
	ResourcesDir string `mapstructure:"resources_dir"`
	ExtractedDir string `mapstructure:"extracted_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	PolicyPath   string `mapstructure:"policy_path"`
	Workers      int    `mapstructure:"workers"`
}

// ReportConfig holds summary workbook configuration
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path"`
}

// LarkConfig holds optional Lark notification configuration. Empty
// credentials disable notification entirely.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	ReceiveID string `mapstructure:"receive_id"`
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
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/billaudit.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.timeout", 60*time.Second)

	// Compatibility defaults for existing deployments.
	viper.SetDefault("validation.name_threshold", 75)
	viper.SetDefault("validation.address_threshold", 0.40)
	viper.SetDefault("validation.daily_categories", []string{"meal"})

	viper.SetDefault("audit.resources_dir", "resources")
	viper.SetDefault("audit.extracted_dir", "model_output")
	viper.SetDefault("audit.output_dir", "audit_output")
	viper.SetDefault("audit.policy_path", "configs/policy.json")
	viper.SetDefault("audit.workers", 4)

	viper.SetDefault("report.output_path", "audit_output/audit_summary.xlsx")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("llm.api_key", "LLM_API_KEY")
	viper.BindEnv("llm.base_url", "LLM_BASE_URL")
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.receive_id", "LARK_RECEIVE_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Validation.NameThreshold < 0 || c.Validation.NameThreshold > 100 {
		return fmt.Errorf("validation.name_threshold must be between 0 and 100")
	}
	if c.Validation.AddressThreshold < 0 || c.Validation.AddressThreshold > 1 {
		return fmt.Errorf("validation.address_threshold must be between 0.0 and 1.0")
	}
	if c.Audit.Workers < 1 {
		return fmt.Errorf("audit.workers must be at least 1")
	}
	return nil
}

// CategoryClasses builds the grouping policy table from configuration.
// Categories listed under daily_categories are date-partitioned; all
// others aggregate monthly.
func (c *Config) CategoryClasses() models.CategoryClassTable {
	table := models.CategoryClassTable{
		models.CategoryCommute: models.MonthlyAggregate,
		models.CategoryFuel:    models.MonthlyAggregate,
		models.CategoryOther:   models.MonthlyAggregate,
	}
	for _, name := range c.Validation.DailyCategories {
		table[models.NormalizeCategory(models.Category(name))] = models.DatePartitioned
	}
	return table
}
