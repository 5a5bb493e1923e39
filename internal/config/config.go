// Service configuration: defaults, optional ./config/config.yaml, .env and PII_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	AI     AIConfig     `mapstructure:"ai"`
	Audit  AuditConfig  `mapstructure:"audit"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	Mode            string        `mapstructure:"mode"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OCRConfig struct {
	Languages      []string `mapstructure:"languages"`
	PageSegMode    int      `mapstructure:"page_seg_mode"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	MaxPixels      int      `mapstructure:"max_pixels"`
}

type AIConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SystemPrompt  string        `mapstructure:"system_prompt"`
	DefaultPrompt string        `mapstructure:"default_prompt"`
}

type AuditConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.grpc_addr", ":50051")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.page_seg_mode", 3)
	v.SetDefault("ocr.max_concurrency", 3)
	v.SetDefault("ocr.max_pixels", 40_000_000)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.timeout", 2*time.Minute)
	v.SetDefault("ai.system_prompt", "You are a helpful assistant in a secure chat app.")
	v.SetDefault("ai.default_prompt", "Analyze this redacted image.")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.brokers", []string{"localhost:9092"})
	v.SetDefault("audit.topic", "pii-audit")
	v.SetDefault("audit.timeout", 5*time.Second)
}

// Load reads configuration from the given directories (./config when none).
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("PII")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", "PII_AI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		errs = append(errs, errors.New("server: at least one of http_addr or grpc_addr must be set"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if len(c.OCR.Languages) == 0 {
		errs = append(errs, errors.New("ocr.languages must not be empty"))
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		errs = append(errs, fmt.Errorf("ocr.page_seg_mode must be in [0,13], got %d", c.OCR.PageSegMode))
	}
	if c.OCR.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("ocr.max_concurrency must be at least 1, got %d", c.OCR.MaxConcurrency))
	}
	if c.OCR.MaxPixels < 1 {
		errs = append(errs, fmt.Errorf("ocr.max_pixels must be positive, got %d", c.OCR.MaxPixels))
	}
	if c.AI.Model == "" {
		errs = append(errs, errors.New("ai.model must be set"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.Audit.Enabled {
		if len(c.Audit.Brokers) == 0 {
			errs = append(errs, errors.New("audit.brokers must be set when audit is enabled"))
		}
		if c.Audit.Topic == "" {
			errs = append(errs, errors.New("audit.topic must be set when audit is enabled"))
		}
		if c.Audit.Timeout <= 0 {
			errs = append(errs, errors.New("audit.timeout must be positive when audit is enabled"))
		}
	}

	return errors.Join(errs...)
}

// MaxUploadBytes is the request body limit derived from server.max_upload_mb.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
