package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no explicit config path is provided.
const DefaultConfigPath = "config.yaml"

// Defaults applied when the config file omits a value.
const (
	defaultServerAddr   = ":8080"
	defaultJWTExpiry    = 24 * time.Hour
	defaultAIBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultAIModel      = "gemini-3-flash-preview"
	defaultAITimeout    = 60 * time.Second
	defaultLogMaxSizeMB = 50
	defaultLogBackups   = 5
	defaultLogMaxAge    = 14
)

// AppConfig holds process-level options resolved from flags.
type AppConfig struct {
	ConfigPath string
}

// FileConfig mirrors the YAML configuration file.
type FileConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTFileConfig  `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTFileConfig is the YAML form of JWTConfig.
type JWTFileConfig struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// JWTConfig holds the token signing secret and lifetime.
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// RedisConfig enables the Redis realtime broker when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AIConfig configures the generative text service.
type AIConfig struct {
	APIKey  string `yaml:"api-key"`
	BaseURL string `yaml:"base-url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// LogConfig configures logrus output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	JSON       bool   `yaml:"json"`
}

// ResolveConfigPath returns the explicit path or the default one.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		if env := strings.TrimSpace(os.Getenv("PRIO_CONFIG")); env != "" {
			return filepath.Clean(env)
		}
		return DefaultConfigPath
	}
	return filepath.Clean(trimmed)
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the YAML file at path, applies env overrides and defaults.
// A missing file is not an error; env and defaults still apply.
func Load(path string) (*FileConfig, error) {
	cfg := &FileConfig{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDatabaseDSN returns the configured DSN or an error when none is set.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return "", errors.New("config: database dsn is empty")
	}
	return cfg.Database.DSN, nil
}

// JWT converts the YAML JWT section into a JWTConfig.
func (c *FileConfig) JWTConfig() (JWTConfig, error) {
	secret := strings.TrimSpace(c.JWT.Secret)
	if secret == "" {
		return JWTConfig{}, errors.New("config: jwt secret is empty")
	}
	expiry := defaultJWTExpiry
	if raw := strings.TrimSpace(c.JWT.Expiry); raw != "" {
		parsed, errParse := time.ParseDuration(raw)
		if errParse != nil || parsed <= 0 {
			return JWTConfig{}, fmt.Errorf("config: invalid jwt expiry %q", raw)
		}
		expiry = parsed
	}
	return JWTConfig{Secret: secret, Expiry: expiry}, nil
}

// AITimeout returns the parsed AI request timeout.
func (c *FileConfig) AITimeout() time.Duration {
	if parsed, err := time.ParseDuration(strings.TrimSpace(c.AI.Timeout)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultAITimeout
}

func applyEnvOverrides(cfg *FileConfig) {
	overrideString(&cfg.Server.Addr, "PRIO_SERVER_ADDR")
	overrideString(&cfg.Database.DSN, "PRIO_DATABASE_DSN")
	overrideString(&cfg.JWT.Secret, "PRIO_JWT_SECRET")
	overrideString(&cfg.JWT.Expiry, "PRIO_JWT_EXPIRY")
	overrideString(&cfg.Redis.Addr, "PRIO_REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "PRIO_REDIS_PASSWORD")
	if raw := strings.TrimSpace(os.Getenv("PRIO_REDIS_DB")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.Redis.DB = n
		}
	}
	overrideString(&cfg.AI.APIKey, "PRIO_AI_API_KEY")
	overrideString(&cfg.AI.BaseURL, "PRIO_AI_BASE_URL")
	overrideString(&cfg.AI.Model, "PRIO_AI_MODEL")
	overrideString(&cfg.Log.Level, "PRIO_LOG_LEVEL")
	overrideString(&cfg.Log.File, "PRIO_LOG_FILE")
}

func overrideString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func applyDefaults(cfg *FileConfig) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if strings.TrimSpace(cfg.AI.BaseURL) == "" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	cfg.AI.BaseURL = strings.TrimSuffix(cfg.AI.BaseURL, "/")
	if strings.TrimSpace(cfg.AI.Model) == "" {
		cfg.AI.Model = defaultAIModel
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = defaultLogBackups
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = defaultLogMaxAge
	}
}
