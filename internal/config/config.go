// Package config 负责加载应用程序的配置。
// Load 返回的 *Config 在启动时构建一次，之后只读，通过构造函数传递给各组件。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL                   MySQLConfig `mapstructure:"mysql"`
	Redis                   RedisConfig `mapstructure:"redis"`
	StatementTimeoutSeconds int         `mapstructure:"statement_timeout_seconds"`
}

// StatementTimeout 返回单条翻译后 SQL 执行的超时时间。
func (c DatabaseConfig) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutSeconds) * time.Second
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用标题缓存。
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	TitleTTLHours int    `mapstructure:"title_ttl_hours"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储查询审计 Kafka 的配置。Brokers 为空时审计直接写库。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// BrokerList 将逗号分隔的 brokers 拆分为列表。
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// Timeout 返回单次生成调用的超时时间。
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// PipelineConfig 控制查询流水线在外部依赖失败时的降级策略。
type PipelineConfig struct {
	// SynthesisFailurePolicy: "degrade" 返回原始结果文本，"fail" 直接报错。
	SynthesisFailurePolicy string `mapstructure:"synthesis_failure_policy"`
	// ExecutionErrorPolicy: "answer" 让合成器解释失败，"fail" 直接报错。
	ExecutionErrorPolicy   string `mapstructure:"execution_error_policy"`
	MaxQuestionLength      int    `mapstructure:"max_question_length"`
}

// RateLimitConfig 配置登录与查询接口的限流。
type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
	QueryPerMinute int `mapstructure:"query_per_minute"`
}

const (
	PolicyDegrade = "degrade"
	PolicyFail    = "fail"
	PolicyAnswer  = "answer"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.statement_timeout_seconds", 15)
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("database.mysql.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.mysql.auto_migrate", true)
	v.SetDefault("database.redis.title_ttl_hours", 168)
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "query-audit")
	v.SetDefault("kafka.group_id", "sqlchat-audit-consumer")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("pipeline.synthesis_failure_policy", PolicyDegrade)
	v.SetDefault("pipeline.execution_error_policy", PolicyAnswer)
	v.SetDefault("pipeline.max_question_length", 2000)
	v.SetDefault("rate_limit.login_per_minute", 10)
	v.SetDefault("rate_limit.query_per_minute", 30)
}

// Load 从指定路径读取 YAML 配置，并允许 SQLCHAT_ 前缀的环境变量覆盖。
// configPath 为空时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SQLCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// AutomaticEnv 只作用于已知 key，敏感项显式绑定以便纯环境变量部署。
	for _, key := range []string{"jwt.secret", "database.mysql.dsn", "database.redis.addr", "database.redis.password", "llm.api_key", "kafka.brokers"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if strings.TrimSpace(c.Database.MySQL.DSN) == "" {
		errs = append(errs, errors.New("database.mysql.dsn is required"))
	}
	switch c.Pipeline.SynthesisFailurePolicy {
	case PolicyDegrade, PolicyFail:
	default:
		errs = append(errs, fmt.Errorf("pipeline.synthesis_failure_policy must be %q or %q", PolicyDegrade, PolicyFail))
	}
	switch c.Pipeline.ExecutionErrorPolicy {
	case PolicyAnswer, PolicyFail:
	default:
		errs = append(errs, fmt.Errorf("pipeline.execution_error_policy must be %q or %q", PolicyAnswer, PolicyFail))
	}
	return errors.Join(errs...)
}
