// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"agentcourt/pkg/secrets"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Legal      LegalConfig      `mapstructure:"legal"`
	Court      CourtConfig      `mapstructure:"court"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig HTTP 服务配置
type APIConfig struct {
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Host    string `mapstructure:"host"`
	Timeout string `mapstructure:"timeout"`
	// RateLimitRPS /api 下的全局限流，<=0 关闭
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=0"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// LLMConfig 生成式后端配置；Provider 选择变体，Providers 保存各变体凭证
type LLMConfig struct {
	Provider         string                    `mapstructure:"provider" validate:"required,oneof=openai qwen zhipuai wenxin claude gemini ollama eino"`
	Model            string                    `mapstructure:"model" validate:"required"`
	Timeout          string                    `mapstructure:"timeout"`
	RateLimitBackoff string                    `mapstructure:"rate_limit_backoff"`
	Temperature      float64                   `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int                       `mapstructure:"max_tokens" validate:"gte=0"`
	Providers        map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"` // wenxin client_secret
	BaseURL   string `mapstructure:"base_url"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" validate:"omitempty,oneof=hash openai ollama"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension" validate:"gte=0"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	CacheTTL  string `mapstructure:"cache_ttl"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Vector VectorConfig `mapstructure:"vector"`
}

// VectorConfig 向量存储配置（file | memory | redis | postgres）
type VectorConfig struct {
	Type      string `mapstructure:"type" validate:"omitempty,oneof=file memory redis postgres"`
	Dir       string `mapstructure:"dir"`
	Addr      string `mapstructure:"addr"`
	DB        string `mapstructure:"db"`
	Password  string `mapstructure:"password"`
	DSN       string `mapstructure:"dsn"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Dimension int    `mapstructure:"dimension" validate:"gte=0"`
}

// LegalConfig 法条检索服务配置
type LegalConfig struct {
	BaseURL    string `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    string `mapstructure:"timeout"`
	MaxResults int    `mapstructure:"max_results" validate:"gte=0"`
}

// CourtConfig 庭审模拟配置
type CourtConfig struct {
	CasesPath    string       `mapstructure:"cases_path"`
	LogDir       string       `mapstructure:"log_dir"`
	ProgressFile string       `mapstructure:"progress_file"`
	MaxCases     int          `mapstructure:"max_cases" validate:"gte=0"`
	MinRounds    int          `mapstructure:"min_rounds" validate:"gte=1"`
	MaxRounds    int          `mapstructure:"max_rounds" validate:"gtefield=MinRounds"`
	Seed         int64        `mapstructure:"seed"`
	Roles        []RoleConfig `mapstructure:"roles" validate:"dive"`
}

// RoleConfig 庭审角色
type RoleConfig struct {
	Role        string `mapstructure:"role" validate:"required,oneof=judge stenographer plaintiff defendant plaintiff_lawyer defendant_lawyer"`
	Name        string `mapstructure:"name" validate:"required"`
	Description string `mapstructure:"description"`
}

// SecretsConfig secret 存储配置
type SecretsConfig struct {
	Provider string              `mapstructure:"provider" validate:"omitempty,oneof=env memory vault"`
	Vault    secrets.VaultConfig `mapstructure:"vault"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool    `mapstructure:"enable"`
	ServiceName    string  `mapstructure:"service_name"`
	ExportEndpoint string  `mapstructure:"export_endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// PrometheusConfig Prometheus 配置；TextFile 非空时进程退出前写出指标快照
type PrometheusConfig struct {
	Enable   bool   `mapstructure:"enable"`
	TextFile string `mapstructure:"text_file"`
}

// RateLimitsConfig 主动限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("model.llm.timeout", "120s")
	v.SetDefault("model.llm.rate_limit_backoff", "60s")
	v.SetDefault("model.embedding.provider", "hash")
	v.SetDefault("model.embedding.dimension", 512)
	v.SetDefault("model.embedding.cache_ttl", "1h")
	v.SetDefault("storage.vector.type", "file")
	v.SetDefault("storage.vector.dir", "db")
	v.SetDefault("storage.vector.key_prefix", "agentcourt")
	v.SetDefault("legal.timeout", "30s")
	v.SetDefault("legal.max_results", 3)
	v.SetDefault("court.log_dir", "court_logs")
	v.SetDefault("court.progress_file", "progress.json")
	v.SetDefault("court.max_cases", 62)
	v.SetDefault("court.min_rounds", 3)
	v.SetDefault("court.max_rounds", 5)
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.tracing.service_name", "agentcourt")
}

// LoadEnvFile 加载 .env 文件；文件不存在时忽略
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("加载 env 文件失败: %w", err)
	}
	return nil
}

// LoadConfig 加载配置文件并校验
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 按 validate 标签校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// expandEnv 将 "${VAR}" 形式替换为环境变量值，未设置时保持原值
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	if val := os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")); val != "" {
		return val
	}
	return s
}

// replaceEnvVars 替换配置中的环境变量
func replaceEnvVars(config *Config) {
	for name, p := range config.Model.LLM.Providers {
		p.APIKey = expandEnv(p.APIKey)
		p.SecretKey = expandEnv(p.SecretKey)
		config.Model.LLM.Providers[name] = p
	}
	config.Model.Embedding.APIKey = expandEnv(config.Model.Embedding.APIKey)
	config.Storage.Vector.Password = expandEnv(config.Storage.Vector.Password)
	config.Storage.Vector.DSN = expandEnv(config.Storage.Vector.DSN)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

// ResolveSecrets 将 "secret://name" 形式的凭证替换为 store 中的值
func ResolveSecrets(ctx context.Context, config *Config, store secrets.Store) error {
	resolve := func(s string) (string, error) {
		val, err := secrets.Resolve(ctx, store, s)
		if err != nil {
			return "", fmt.Errorf("解析 secret %q 失败: %w", s, err)
		}
		return val, nil
	}
	for name, p := range config.Model.LLM.Providers {
		var err error
		if p.APIKey, err = resolve(p.APIKey); err != nil {
			return err
		}
		if p.SecretKey, err = resolve(p.SecretKey); err != nil {
			return err
		}
		config.Model.LLM.Providers[name] = p
	}
	var err error
	if config.Model.Embedding.APIKey, err = resolve(config.Model.Embedding.APIKey); err != nil {
		return err
	}
	if config.Storage.Vector.Password, err = resolve(config.Storage.Vector.Password); err != nil {
		return err
	}
	return nil
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
