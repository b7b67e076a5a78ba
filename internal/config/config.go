// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"` // must cover upload + polling
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables shared rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit"` // requests per window per client; 0 disables
	Window time.Duration `yaml:"window"`
}

// NVCFConfig holds everything the vendor client needs. APIKey is never
// defaulted; it must come from the file or the environment.
type NVCFConfig struct {
	APIKey          string        `yaml:"api_key"`
	AssetsURL       string        `yaml:"assets_url"`
	InferenceURL    string        `yaml:"inference_url"`
	StatusURL       string        `yaml:"status_url"` // request id is appended
	Model           string        `yaml:"model"`
	Threshold       float64       `yaml:"threshold"`
	ContentType     string        `yaml:"content_type"`
	Description     string        `yaml:"description"`
	AllocateTimeout time.Duration `yaml:"allocate_timeout"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	PollDelay       time.Duration `yaml:"poll_delay"`
	MaxRetries      int           `yaml:"max_retries"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max in-flight detections
}

type StorageConfig struct {
	UploadDir      string `yaml:"upload_dir"`
	OutputDir      string `yaml:"output_dir"`
	VideoExtension string `yaml:"video_extension"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	NVCF      NVCFConfig      `yaml:"nvcf"`
	Storage   StorageConfig   `yaml:"storage"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Env vars that override the api key, checked in order.
var apiKeyEnv = []string{"NVCF_API_KEY", "NVIDIA_PERSONAL_API_KEY"}

// LoadConfig reads the YAML file at path (a missing file is allowed when the
// environment supplies the key), applies .env overrides and defaults, and
// validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env", ".env.local")

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	for _, k := range apiKeyEnv {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			cfg.NVCF.APIKey = v
			break
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 512 << 20
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 5 * time.Minute
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	n := &cfg.NVCF
	if n.AssetsURL == "" {
		n.AssetsURL = "https://api.nvcf.nvidia.com/v2/nvcf/assets"
	}
	if n.InferenceURL == "" {
		n.InferenceURL = "https://ai.api.nvidia.com/v1/cv/nvidia/nv-grounding-dino"
	}
	if n.StatusURL == "" {
		n.StatusURL = "https://api.nvcf.nvidia.com/v2/nvcf/pexec/status/"
	}
	if n.Model == "" {
		n.Model = "Grounding-Dino"
	}
	if n.Threshold == 0 {
		n.Threshold = 0.3
	}
	if n.ContentType == "" {
		n.ContentType = "video/mp4"
	}
	if n.Description == "" {
		n.Description = "Input Video"
	}
	if n.AllocateTimeout <= 0 {
		n.AllocateTimeout = 60 * time.Second
	}
	if n.UploadTimeout <= 0 {
		n.UploadTimeout = 300 * time.Second
	}
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = 120 * time.Second
	}
	if n.PollDelay <= 0 {
		n.PollDelay = 2 * time.Second
	}
	if n.MaxRetries <= 0 {
		n.MaxRetries = 10
	}
	if n.ConcurrentLimit <= 0 {
		n.ConcurrentLimit = 4
	}

	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "outputs"
	}
	if cfg.Storage.VideoExtension == "" {
		cfg.Storage.VideoExtension = ".mp4"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.NVCF.APIKey == "" {
		return errors.New("nvcf.api_key is required (or set NVCF_API_KEY)")
	}
	if c.NVCF.Threshold < 0 || c.NVCF.Threshold > 1 {
		return fmt.Errorf("nvcf.threshold must be within [0,1], got %v", c.NVCF.Threshold)
	}
	if !strings.HasPrefix(c.Storage.VideoExtension, ".") {
		return fmt.Errorf("storage.video_extension must start with a dot, got %q", c.Storage.VideoExtension)
	}
	if c.RateLimit.Limit < 0 {
		return errors.New("rate_limit.limit must not be negative")
	}
	return nil
}
