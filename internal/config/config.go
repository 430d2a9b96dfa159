package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	AI           AIConfig           `mapstructure:"ai"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Notification NotificationConfig `mapstructure:"notification"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"`
	MigrateOnly  bool   `mapstructure:"-"`
	FilePath     string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

type DatabaseConfig struct {
	Host      string `mapstructure:"host" validate:"required"`
	Port      int    `mapstructure:"port" validate:"required,min=1"`
	User      string `mapstructure:"user" validate:"required"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname" validate:"required"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parse_time"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string        `mapstructure:"secret" validate:"required"`
	ExpireHours int           `mapstructure:"expire_hours" validate:"min=1"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type" validate:"oneof=local minio"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint" validate:"required_if=Type minio"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket" validate:"required_if=Type minio"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint" validate:"required_if=Enabled true"`
}

// AIConfig 内容生成服务（对话辅导、闪卡生成）
type AIConfig struct {
	Provider   string        `mapstructure:"provider" validate:"oneof=openai anthropic none"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int           `mapstructure:"max_tokens" validate:"min=1"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint          `mapstructure:"max_retries"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests" validate:"min=1"`
	WindowMinutes int `mapstructure:"window_minutes" validate:"min=1"`
}

// EngineConfig 学习进度引擎参数
type EngineConfig struct {
	// Timezone 学习者未设置时区时用于计算连续学习天数的默认时区
	Timezone    string          `mapstructure:"timezone"`
	DuePageSize int             `mapstructure:"due_page_size" validate:"min=1"`
	Flashcard   FlashcardConfig `mapstructure:"flashcard"`
}

type FlashcardConfig struct {
	MinDifficulty    int           `mapstructure:"min_difficulty" validate:"min=0"`
	MaxDifficulty    int           `mapstructure:"max_difficulty" validate:"gtfield=MinDifficulty"`
	HardDelay        time.Duration `mapstructure:"hard_delay" validate:"gt=0"`
	EasyBaseInterval time.Duration `mapstructure:"easy_base_interval" validate:"gtfield=HardDelay"`
}

type NotificationConfig struct {
	Channel string        `mapstructure:"channel"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.dbname", "study_companion")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("engine.timezone", "Local")
	v.SetDefault("engine.due_page_size", 50)
	v.SetDefault("engine.flashcard.min_difficulty", 1)
	v.SetDefault("engine.flashcard.max_difficulty", 5)
	v.SetDefault("engine.flashcard.hard_delay", 10*time.Minute)
	v.SetDefault("engine.flashcard.easy_base_interval", 24*time.Hour)
	v.SetDefault("notification.channel", "study:events")
	v.SetDefault("notification.timeout", 2*time.Second)
}

// LoadConfig 从目录中读取 config.yaml，环境变量优先
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// 敏感信息只从环境变量读取
	bindings := map[string]string{
		"database.host":            "DATABASE_HOST",
		"database.password":        "DATABASE_PASSWORD",
		"jwt.secret":               "JWT_SECRET",
		"redis.host":               "REDIS_HOST",
		"redis.password":           "REDIS_PASSWORD",
		"ai.api_key":               "AI_API_KEY",
		"ai.base_url":              "AI_BASE_URL",
		"storage.minio_access_key": "MINIO_ACCESS_KEY",
		"storage.minio_secret_key": "MINIO_SECRET_KEY",
		"server.mode":              "SERVER_MODE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	cfg.FilePath = v.ConfigFileUsed()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = time.Duration(cfg.JWT.ExpireHours) * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid engine.timezone %q: %w", cfg.Engine.Timezone, err)
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Validate 按 validate 标签校验配置，错误合并为一条消息
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
	}
	return nil
}

// Location 返回引擎默认时区
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Engine.Timezone)
}

// EffectiveLogLevel 未显式配置时按运行模式推断日志级别
func (c *Config) EffectiveLogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	if c.Server.Mode == "debug" {
		return "debug"
	}
	return "info"
}
