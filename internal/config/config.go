// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type PubSubConfig struct {
	ProjectID   string `yaml:"project_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type EmailConfig struct {
	Region string `yaml:"region"`
	Sender string `yaml:"sender"`
	// Loaded from environment
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		// Loaded from environment
		ClerkSecretKey string `yaml:"-"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Email    EmailConfig    `yaml:"email"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.ClerkSecretKey = os.Getenv("CLERK_SECRET_KEY")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if c.Email.Sender != "" && c.Email.Region == "" {
		return fmt.Errorf("email region is required when a sender is configured")
	}
	return nil
}
