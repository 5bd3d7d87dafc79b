package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	xerrors "pgai-openai/internal/errors"
)

// Config 描述适配器运行所需的全部配置。
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Settings    SettingsConfig    `yaml:"settings"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Guard       GuardConfig       `yaml:"guard"`
	ClientCache ClientCacheConfig `yaml:"client_cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DatabaseConfig 描述外层查询所在的数据库。DSN 为空表示不连接数据库。
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
}

// SettingsConfig 决定凭据设置从哪里读取。
type SettingsConfig struct {
	// Source 可选 database、env、redis、static。
	Source    string            `yaml:"source"`
	EnvPrefix string            `yaml:"env_prefix"`
	Static    map[string]string `yaml:"static"`
	Redis     RedisConfig       `yaml:"redis"`
}

// RedisConfig 描述保存设置的 Redis hash。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Hash     string `yaml:"hash"`
}

// OpenAIConfig 中的字段优先于设置源中的值。
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GuardConfig 控制取消探测。
type GuardConfig struct {
	PollIntervalMillis int `yaml:"poll_interval_ms"`
}

// ClientCacheConfig 控制客户端缓存容量。
type ClientCacheConfig struct {
	Size int `yaml:"size"`
}

// LoggingConfig 对应 pkg/logger.Config。
type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Format  string      `yaml:"format"`
	Outputs []string    `yaml:"outputs"`
	Audit   AuditConfig `yaml:"audit"`
}

// AuditConfig 控制审计日志文件。
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load 读取 .env（若存在）与配置文件。path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "读取配置文件失败")
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "解析配置失败")
		}
		baseDir = filepath.Dir(path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 用环境变量覆盖连接与凭据相关字段。
func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"PGAI_DATABASE_DRIVER": &c.Database.Driver,
		"PGAI_DATABASE_DSN":    &c.Database.DSN,
		"PGAI_SETTINGS_SOURCE": &c.Settings.Source,
		"PGAI_REDIS_ADDRESS":   &c.Settings.Redis.Address,
		"OPENAI_API_KEY":       &c.OpenAI.APIKey,
		"OPENAI_BASE_URL":      &c.OpenAI.BaseURL,
		"PGAI_LOG_LEVEL":       &c.Logging.Level,
	}
	for name, field := range overrides {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*field = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeConfiguration, err, "OPENAI_TIMEOUT_SECONDS 必须是整数")
		}
		c.OpenAI.TimeoutSeconds = seconds
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Settings.Source == "" {
		if c.Database.DSN != "" {
			c.Settings.Source = "database"
		} else {
			c.Settings.Source = "env"
		}
	}
	c.Settings.Source = strings.ToLower(c.Settings.Source)
	if c.Guard.PollIntervalMillis <= 0 {
		c.Guard.PollIntervalMillis = 100
	}
	if c.ClientCache.Size <= 0 {
		c.ClientCache.Size = 16
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}
}

func (c *Config) validate() error {
	switch c.Settings.Source {
	case "database":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return xerrors.New(xerrors.CodeConfiguration, "settings.source=database 需要配置 database.dsn")
		}
	case "redis":
		if strings.TrimSpace(c.Settings.Redis.Address) == "" {
			return xerrors.New(xerrors.CodeConfiguration, "settings.source=redis 需要配置 settings.redis.address")
		}
	case "env", "static":
	default:
		return xerrors.New(xerrors.CodeConfiguration, fmt.Sprintf("未知的设置源: %s", c.Settings.Source))
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return xerrors.New(xerrors.CodeConfiguration, "openai.timeout_seconds 不能为负数")
	}
	return nil
}

// Timeout 返回 OpenAI 请求超时，0 表示使用库默认值。
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval 返回取消探测间隔。
func (c GuardConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// ConnMaxLifetime 返回连接最大存活时间。
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSeconds) * time.Second
}
