package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SMSProviderConfig holds the outbound SMS provider settings
type SMSProviderConfig struct {
	APIBaseURL        string `yaml:"apiBaseURL" validate:"required,url"`
	AccountSID        string `yaml:"accountSID" validate:"required"`
	AuthToken         string `yaml:"authToken,omitempty"`
	FromNumber        string `yaml:"fromNumber" validate:"required"`
	StatusCallbackURL string `yaml:"statusCallbackURL,omitempty" validate:"omitempty,url"`
	ContactCardURL    string `yaml:"contactCardURL,omitempty" validate:"omitempty,url"`
}

// DeliveryConfig holds the batching parameters for the delivery pipeline
type DeliveryConfig struct {
	SMSBatchSize        int `yaml:"smsBatchSize" validate:"required,min=1"`
	EmailBatchSize      int `yaml:"emailBatchSize" validate:"required,min=1"`
	InterBatchDelaySecs int `yaml:"interBatchDelaySecs" validate:"min=0"`
}

// OutreachConfig holds contact-attempt workflow parameters
type OutreachConfig struct {
	ResponseWindowHours int `yaml:"responseWindowHours" validate:"required,min=1"`
	StartIntervalSecs   int `yaml:"startIntervalSecs" validate:"min=0"`
}

// SchedulerConfig holds the deadline poll loop parameters
type SchedulerConfig struct {
	PollIntervalSecs int `yaml:"pollIntervalSecs" validate:"required,min=1"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL     string            `yaml:"databaseURL" validate:"required"`
	CompanyID       string            `yaml:"companyID" validate:"required,uuid4"`
	ListenAddr      string            `yaml:"listenAddr,omitempty"`
	AlertWebhookURL string            `yaml:"alertWebhookURL,omitempty" validate:"omitempty,url"`
	GmailUserID     string            `yaml:"gmailUserID" validate:"required"`
	GmailSender     string            `yaml:"gmailSender,omitempty"`
	SMSProvider     SMSProviderConfig `yaml:"smsProvider" validate:"required"`
	Delivery        DeliveryConfig    `yaml:"delivery" validate:"required"`
	Outreach        OutreachConfig    `yaml:"outreach" validate:"required"`
	Scheduler       SchedulerConfig   `yaml:"scheduler" validate:"required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="prod" looks for "crewcall_config.prod.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.SMSProvider.AuthToken == "" {
		return fmt.Errorf("config validation failed: sms auth token not set (config or CREWCALL_SMS_AUTH_TOKEN)")
	}

	return nil
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CREWCALL_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("CREWCALL_SMS_AUTH_TOKEN"); v != "" {
		cfg.SMSProvider.AuthToken = v
	}
}

// findConfigFile searches for crewcall_config.<env>.yaml in the current
// directory and the user's home directory
func findConfigFile(env string) (string, error) {
	configFileName := "crewcall_config.yaml"
	if env != "" {
		configFileName = fmt.Sprintf("crewcall_config.%s.yaml", env)
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
