package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RUN_PORT", "RUN_HOST", "STORE_DRIVER", "DATABASE_URL", "OBJECT_STORE_DRIVER",
		"AWS_S3_INPUT_BUCKET_NAME", "AWS_S3_OUTPUT_BUCKET_NAME", "GENERATION_PROVIDER",
		"GENERATION_BASE_URL", "OPENAI_API_KEY", "GENERATION_API_KEY", "JWT_SECRET_KEY",
		"SESSION_TTL", "MAX_UPLOAD_BYTES", "LOGIN_RATE_LIMIT_PER_MINUTE", "AWS_REGION",
	} {
		t.Setenv(key, "")
	}
}

const baseYAML = `
port: "9000"
storeDriver: memory
objectStoreDriver: memory
inputBucket: resumes-in
outputBucket: pages-out
generationAPIKey: sk-yaml
jwtSecret: yaml-secret
`

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.Host != "localhost" {
		t.Fatalf("unexpected listen settings: %+v", cfg)
	}
	if cfg.S3Region != "us-east-1" || cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected defaults: region=%q max=%d", cfg.S3Region, cfg.MaxUploadBytes)
	}
	ttl, err := ParseSessionTTL(cfg.SessionTTL)
	if err != nil || ttl != 15*24*time.Hour {
		t.Fatalf("expected 15 day session ttl, got %v err=%v", ttl, err)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("JWT_SECRET_KEY", "env-secret")
	t.Setenv("AWS_S3_OUTPUT_BUCKET_NAME", "env-out")
	t.Setenv("RUN_PORT", "7777")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 127.0.0.1")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GenerationAPIKey != "sk-env" || cfg.JWTSecret != "env-secret" {
		t.Fatalf("env secrets should win: %+v", cfg)
	}
	if cfg.OutputBucket != "env-out" || cfg.InputBucket != "resumes-in" {
		t.Fatalf("unexpected buckets: %q %q", cfg.InputBucket, cfg.OutputBucket)
	}
	if cfg.Port != "7777" || !cfg.S3UseSSL {
		t.Fatalf("unexpected port/ssl: %q %v", cfg.Port, cfg.S3UseSSL)
	}
	if len(cfg.TrustedProxyCIDRs) != 2 || cfg.TrustedProxyCIDRs[1] != "127.0.0.1" {
		t.Fatalf("unexpected proxies: %v", cfg.TrustedProxyCIDRs)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			yaml:    strings.Replace(baseYAML, "jwtSecret: yaml-secret", "", 1),
			wantErr: "jwtSecret",
		},
		{
			name:    "postgres without database url",
			yaml:    strings.Replace(baseYAML, "storeDriver: memory", "storeDriver: postgres", 1),
			wantErr: "databaseURL",
		},
		{
			name:    "missing output bucket",
			yaml:    strings.Replace(baseYAML, "outputBucket: pages-out", "", 1),
			wantErr: "outputBucket",
		},
		{
			name:    "minio without endpoint",
			yaml:    strings.Replace(baseYAML, "objectStoreDriver: memory", "objectStoreDriver: minio", 1),
			wantErr: "s3Endpoint",
		},
		{
			name:    "unknown provider",
			yaml:    baseYAML + "generationProvider: mystery\n",
			wantErr: "generationProvider",
		},
		{
			name:    "bad session ttl",
			yaml:    baseYAML + "sessionTTL: soon\n",
			wantErr: "sessionTTL",
		},
		{
			name:    "negative rate limit",
			yaml:    baseYAML + "loginRateLimitPerMinute: -1\n",
			wantErr: "rate limits",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error for explicit missing path")
	}
}
