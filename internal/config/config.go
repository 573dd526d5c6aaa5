package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Notify     NotifyConfig     `yaml:"notify"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Images     ImagesConfig     `yaml:"images"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	MenuPath   string           `yaml:"menu_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type StorageConfig struct {
	// Backend selects the primary store: sqlite (default), redis or memory.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	// Failover fronts the primary with an in-memory fallback.
	Failover bool         `yaml:"failover"`
	Backup   BackupConfig `yaml:"backup"`
}

// BackupConfig controls periodic snapshots of the sqlite database file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

const (
	NotifyServerChan = "serverchan"
	NotifyTelegram   = "telegram"
	NotifyNone       = "none"
)

type NotifyConfig struct {
	Backend    string           `yaml:"backend"`
	ServerChan ServerChanConfig `yaml:"serverchan"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type ServerChanConfig struct {
	SendKey        string `yaml:"send_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key   string `yaml:"key"`
	Extra string `yaml:"extra"`
	Name  string `yaml:"name"`
	// Role is viewer or manager; manager unlocks catalog mutation,
	// history deletion and exports.
	Role string `yaml:"role"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type ImagesConfig struct {
	Path      string `yaml:"path"`
	URLPrefix string `yaml:"url_prefix"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	LedgerSpreadsheetID string `yaml:"ledger_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env является необязательным
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for redis storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Backend == StorageSQLite && c.Storage.Path == "" {
		return errors.New("storage path is required for sqlite backend")
	}

	switch c.Notify.Backend {
	case NotifyNone:
	case NotifyServerChan:
		if c.Notify.ServerChan.SendKey == "" || c.Notify.ServerChan.SendKey == "YOUR_SEND_KEY_HERE" {
			return errors.New("serverchan send key is required")
		}
	case NotifyTelegram:
		if c.Notify.Telegram.BotToken == "" {
			return errors.New("telegram bot token is required")
		}
		if c.Notify.Telegram.ChatID == 0 {
			return errors.New("telegram chat id is required")
		}
	default:
		return fmt.Errorf("unknown notify backend: %s", c.Notify.Backend)
	}

	return validateAPIKeys(c.API.Auth.APIKeys)
}

func validateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' has an empty key", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key found: %s", k.Name)
		}
		seen[k.Key] = true
		if k.Role != "" && k.Role != "viewer" && k.Role != "manager" {
			return fmt.Errorf("api key '%s' has unknown role: %s", k.Name, k.Role)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageSQLite
	}
	if c.Storage.Backend == StorageSQLite && c.Storage.Path == "" {
		c.Storage.Path = "data/kiosk.db"
	}
	if c.Storage.Backup.Enabled && c.Storage.Backup.StoragePath == "" {
		c.Storage.Backup.StoragePath = "data/backups"
	}

	if c.Notify.Backend == "" {
		c.Notify.Backend = NotifyNone
	}
	if c.Notify.ServerChan.BaseURL == "" {
		c.Notify.ServerChan.BaseURL = "https://sctapi.ftqq.com"
	}
	if c.Notify.ServerChan.TimeoutSeconds == 0 {
		c.Notify.ServerChan.TimeoutSeconds = 10
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	for i := range c.API.Auth.APIKeys {
		if c.API.Auth.APIKeys[i].Role == "" {
			c.API.Auth.APIKeys[i].Role = "viewer"
		}
	}

	if c.Images.Path == "" {
		c.Images.Path = "data/images"
	}
	if c.Images.URLPrefix == "" {
		c.Images.URLPrefix = "/images"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "data/exports"
	}
}
