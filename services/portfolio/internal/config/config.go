package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location. PORTFOLIO_CONFIG overrides it.
var ConfigPath = defaultConfigPath()

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ObjectStoreS3     = "s3"
	ObjectStoreMinio  = "minio"
	ObjectStoreMemory = "memory"

	defaultPort           = "8080"
	defaultHost           = "localhost"
	defaultS3Region       = "us-east-1"
	defaultSessionTTL     = "360h"
	defaultMaxUploadBytes = 10 << 20
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"logLevel"`
	LogsDir  string `yaml:"logsDir"`

	StoreDriver string `yaml:"storeDriver"`
	DatabaseURL string `yaml:"databaseURL"`

	ObjectStoreDriver string `yaml:"objectStoreDriver"`
	S3Region          string `yaml:"s3Region"`
	S3Endpoint        string `yaml:"s3Endpoint"`
	S3AccessKey       string `yaml:"s3AccessKey"`
	S3SecretKey       string `yaml:"s3SecretKey"`
	S3UseSSL          bool   `yaml:"s3UseSSL"`
	InputBucket       string `yaml:"inputBucket"`
	OutputBucket      string `yaml:"outputBucket"`

	GenerationProvider string `yaml:"generationProvider"`
	GenerationBaseURL  string `yaml:"generationBaseURL"`
	GenerationAPIKey   string `yaml:"generationAPIKey"`
	GenerationModel    string `yaml:"generationModel"`

	JWTSecret  string `yaml:"jwtSecret"`
	SessionTTL string `yaml:"sessionTTL"`

	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
	CORSAllowedOrigins       []string `yaml:"corsAllowedOrigins"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	MaxUploadBytes           int64    `yaml:"maxUploadBytes"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`
	EventsStream string `yaml:"eventsStream"`
}

// Load reads config from path (defaults to ConfigPath), applies environment
// overrides and defaults, and validates the result. A missing file at the
// default path is tolerated so the service can run from environment alone.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	explicit := path != ""
	if !explicit {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	envString("RUN_PORT", &cfg.Port)
	envString("RUN_HOST", &cfg.Host)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("LOGS_DIR", &cfg.LogsDir)
	envString("STORE_DRIVER", &cfg.StoreDriver)
	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("OBJECT_STORE_DRIVER", &cfg.ObjectStoreDriver)
	envString("AWS_REGION", &cfg.S3Region)
	envString("AWS_S3_ENDPOINT", &cfg.S3Endpoint)
	envString("AWS_ACCESS_KEY_ID", &cfg.S3AccessKey)
	envString("AWS_SECRET_ACCESS_KEY", &cfg.S3SecretKey)
	envBool("S3_USE_SSL", &cfg.S3UseSSL)
	envString("AWS_S3_INPUT_BUCKET_NAME", &cfg.InputBucket)
	envString("AWS_S3_OUTPUT_BUCKET_NAME", &cfg.OutputBucket)
	envString("GENERATION_PROVIDER", &cfg.GenerationProvider)
	envString("GENERATION_BASE_URL", &cfg.GenerationBaseURL)
	envString("OPENAI_API_KEY", &cfg.GenerationAPIKey)
	envString("GENERATION_API_KEY", &cfg.GenerationAPIKey)
	envString("GENERATION_MODEL", &cfg.GenerationModel)
	envString("JWT_SECRET_KEY", &cfg.JWTSecret)
	envString("SESSION_TTL", &cfg.SessionTTL)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	envInt("SIGNUP_RATE_LIMIT_PER_MINUTE", &cfg.SignupRateLimitPerMinute)
	envInt("LOGIN_RATE_LIMIT_PER_MINUTE", &cfg.LoginRateLimitPerMinute)
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	envString("AMQP_URL", &cfg.AMQPURL)
	envString("AMQP_EXCHANGE", &cfg.AMQPExchange)
	envString("EVENTS_STREAM", &cfg.EventsStream)
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreDriverPostgres
	}
	if cfg.ObjectStoreDriver == "" {
		cfg.ObjectStoreDriver = ObjectStoreS3
	}
	if cfg.S3Region == "" {
		cfg.S3Region = defaultS3Region
	}
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.ObjectStoreDriver = strings.ToLower(strings.TrimSpace(cfg.ObjectStoreDriver))
	cfg.GenerationProvider = strings.ToLower(strings.TrimSpace(cfg.GenerationProvider))
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET_KEY)")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres store (set in config.yaml or DATABASE_URL)")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	switch cfg.ObjectStoreDriver {
	case ObjectStoreS3, ObjectStoreMemory:
	case ObjectStoreMinio:
		if strings.TrimSpace(cfg.S3Endpoint) == "" {
			return errors.New("config: s3Endpoint is required for the minio object store")
		}
		if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			return errors.New("config: s3AccessKey and s3SecretKey are required for the minio object store")
		}
	default:
		return fmt.Errorf("config: unknown objectStoreDriver %q", cfg.ObjectStoreDriver)
	}
	if strings.TrimSpace(cfg.InputBucket) == "" {
		return errors.New("config: inputBucket is required (set in config.yaml or AWS_S3_INPUT_BUCKET_NAME)")
	}
	if strings.TrimSpace(cfg.OutputBucket) == "" {
		return errors.New("config: outputBucket is required (set in config.yaml or AWS_S3_OUTPUT_BUCKET_NAME)")
	}
	switch cfg.GenerationProvider {
	case "", "openai":
		if cfg.GenerationAPIKey == "" && cfg.GenerationBaseURL == "" {
			return errors.New("config: generationAPIKey is required for openai (set in config.yaml or OPENAI_API_KEY)")
		}
	case "gemini":
		if cfg.GenerationAPIKey == "" {
			return errors.New("config: generationAPIKey is required for gemini")
		}
		if cfg.GenerationModel == "" {
			return errors.New("config: generationModel is required for gemini")
		}
	case "ollama":
		if cfg.GenerationModel == "" {
			return errors.New("config: generationModel is required for ollama")
		}
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be > 0")
	}
	return nil
}

// ParseSessionTTL parses the session lifetime duration string.
func ParseSessionTTL(ttl string) (time.Duration, error) {
	dur, err := time.ParseDuration(strings.TrimSpace(ttl))
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: sessionTTL must be positive")
	}
	return dur, nil
}

func defaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("PORTFOLIO_CONFIG")); p != "" {
		return p
	}
	return "config.yaml"
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
