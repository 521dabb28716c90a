package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 描述了网关在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MetricsConfig 控制指标服务是否启用及其监听地址。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// OpenAIConfig 用于配置上游 OpenAI API 的调用方式。
// APIKey 与 APIKeyEnv 二选一，前者优先；两者都为空时启动失败。
type OpenAIConfig struct {
	APIKey         string       `yaml:"api_key"`
	APIKeyEnv      string       `yaml:"api_key_env"`
	BaseURL        string       `yaml:"base_url"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	Models         ModelsConfig `yaml:"models"`
}

// ModelsConfig 指定三类操作各自的默认模型。
type ModelsConfig struct {
	Generate  string `yaml:"generate"`
	Translate string `yaml:"translate"`
	Code      string `yaml:"code"`
}

// StorageConfig 描述后端存储的连接信息。
type StorageConfig struct {
	MySQL MySQLConfig `yaml:"mysql"`
}

// MySQLConfig 描述 MySQL 连接池参数。DSN 为空时不建立连接。
type MySQLConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `yaml:"conn_max_idle_time_seconds"`
}

// LogConfig 控制日志输出行为。
type LogConfig struct {
	Level       string          `yaml:"level"`
	Format      string          `yaml:"format"`
	OutputPaths []string        `yaml:"output_paths"`
	Access      AccessLogConfig `yaml:"access"`
}

// AccessLogConfig 控制访问日志的落盘与轮转。
type AccessLogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load 负责解析指定路径的 YAML 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	if c.OpenAI.APIKeyEnv == "" {
		c.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = 60
	}
	if c.OpenAI.Models.Generate == "" {
		c.OpenAI.Models.Generate = "text-davinci-003"
	}
	if c.OpenAI.Models.Translate == "" {
		c.OpenAI.Models.Translate = "gpt-3.5-turbo"
	}
	if c.OpenAI.Models.Code == "" {
		c.OpenAI.Models.Code = "code-davinci-002"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Timeout 返回上游调用的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 按 配置文件 > 环境变量 的顺序解析上游密钥。
// 密钥在进程启动时解析一次，缺失时立即失败。
func (c OpenAIConfig) ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(c.APIKeyEnv)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("未找到 OpenAI API Key，请设置配置项 api_key 或环境变量 %s", c.APIKeyEnv)
}
