package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/config"
)

func writeConfigFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestWithDefault(t *testing.T) {
	cfg := config.WithDefault()
	if cfg == nil {
		t.Fatal("WithDefault() returned nil")
	}

	builtCfg, err := cfg.Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	endpoint := builtCfg.Endpoint()
	if endpoint.String() != config.DefaultEndpoint {
		t.Errorf("expected Endpoint %q, got %q", config.DefaultEndpoint, endpoint.String())
	}
	if builtCfg.UserAgent() != config.DefaultUserAgent {
		t.Errorf("expected UserAgent %q, got %q", config.DefaultUserAgent, builtCfg.UserAgent())
	}
	if builtCfg.Timeout() != 10*time.Second {
		t.Errorf("expected Timeout 10s, got %v", builtCfg.Timeout())
	}
	if builtCfg.ResultLimit() != 50 {
		t.Errorf("expected ResultLimit 50, got %d", builtCfg.ResultLimit())
	}
	if builtCfg.ThumbSize() != 96 {
		t.Errorf("expected ThumbSize 96, got %d", builtCfg.ThumbSize())
	}
	if builtCfg.MemoCapacity() != 64 {
		t.Errorf("expected MemoCapacity 64, got %d", builtCfg.MemoCapacity())
	}

	if builtCfg.BaseDelay() != 100*time.Millisecond {
		t.Errorf("expected BaseDelay 100ms, got %v", builtCfg.BaseDelay())
	}
	if builtCfg.Jitter() != 50*time.Millisecond {
		t.Errorf("expected Jitter 50ms, got %v", builtCfg.Jitter())
	}
	if builtCfg.RandomSeed() == 0 {
		t.Error("expected RandomSeed to be set, got 0")
	}
	if builtCfg.MaxAttempt() != 3 {
		t.Errorf("expected MaxAttempt 3, got %d", builtCfg.MaxAttempt())
	}
	if builtCfg.BackoffInitialDuration() != 200*time.Millisecond {
		t.Errorf("expected BackoffInitialDuration 200ms, got %v", builtCfg.BackoffInitialDuration())
	}
	if builtCfg.BackoffMultiplier() != 2.0 {
		t.Errorf("expected BackoffMultiplier 2.0, got %f", builtCfg.BackoffMultiplier())
	}
	if builtCfg.BackoffMaxDuration() != 5*time.Second {
		t.Errorf("expected BackoffMaxDuration 5s, got %v", builtCfg.BackoffMaxDuration())
	}

	if builtCfg.DownloadThumbnails() {
		t.Error("expected DownloadThumbnails false")
	}
	if builtCfg.CacheDir() == "" {
		t.Error("expected CacheDir to be set")
	}
	if builtCfg.MaxThumbnailSize() != 2<<20 {
		t.Errorf("expected MaxThumbnailSize 2MiB, got %d", builtCfg.MaxThumbnailSize())
	}
	if builtCfg.ThumbnailConcurrency() != 4 {
		t.Errorf("expected ThumbnailConcurrency 4, got %d", builtCfg.ThumbnailConcurrency())
	}
	if builtCfg.ThumbnailRate() != 10 {
		t.Errorf("expected ThumbnailRate 10, got %v", builtCfg.ThumbnailRate())
	}
	if builtCfg.LogLevel() != "info" {
		t.Errorf("expected LogLevel info, got %q", builtCfg.LogLevel())
	}
	if builtCfg.LogFormat() != "text" {
		t.Errorf("expected LogFormat text, got %q", builtCfg.LogFormat())
	}
}

func TestBuilderChain(t *testing.T) {
	endpoint, _ := url.Parse("https://de.wikipedia.org/w/api.php")

	cfg, err := config.WithDefault().
		WithEndpoint(*endpoint).
		WithUserAgent("custom/2.0").
		WithTimeout(3 * time.Second).
		WithResultLimit(20).
		WithThumbSize(120).
		WithMemoCapacity(0).
		WithBaseDelay(time.Second).
		WithJitter(0).
		WithRandomSeed(42).
		WithMaxAttempt(5).
		WithBackoffInitialDuration(time.Second).
		WithBackoffMultiplier(1.5).
		WithBackoffMaxDuration(time.Minute).
		WithDownloadThumbnails(true).
		WithCacheDir("/tmp/wikisearch").
		WithMaxThumbnailSize(1024).
		WithThumbnailConcurrency(2).
		WithThumbnailRate(0.5).
		WithLogLevel("debug").
		WithLogFormat("json").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := cfg.Endpoint()
	if got.Host != "de.wikipedia.org" {
		t.Errorf("expected endpoint host de.wikipedia.org, got %q", got.Host)
	}
	if cfg.UserAgent() != "custom/2.0" || cfg.Timeout() != 3*time.Second {
		t.Errorf("unexpected fetch settings: %q %v", cfg.UserAgent(), cfg.Timeout())
	}
	if cfg.ResultLimit() != 20 || cfg.ThumbSize() != 120 || cfg.MemoCapacity() != 0 {
		t.Errorf("unexpected query settings: %d %d %d", cfg.ResultLimit(), cfg.ThumbSize(), cfg.MemoCapacity())
	}
	if cfg.RandomSeed() != 42 || cfg.MaxAttempt() != 5 || cfg.BackoffMultiplier() != 1.5 {
		t.Errorf("unexpected retry settings: %d %d %v", cfg.RandomSeed(), cfg.MaxAttempt(), cfg.BackoffMultiplier())
	}
	if !cfg.DownloadThumbnails() || cfg.CacheDir() != "/tmp/wikisearch" || cfg.ThumbnailRate() != 0.5 {
		t.Errorf("unexpected thumbnail settings")
	}
	if cfg.LogLevel() != "debug" || cfg.LogFormat() != "json" {
		t.Errorf("unexpected log settings: %q %q", cfg.LogLevel(), cfg.LogFormat())
	}
}

func TestBuild_Invalid(t *testing.T) {
	ftp, _ := url.Parse("ftp://example.com/api")
	noHost, _ := url.Parse("https:///api")

	tests := []struct {
		name  string
		build func() *config.Config
	}{
		{"non http endpoint", func() *config.Config { return config.WithDefault().WithEndpoint(*ftp) }},
		{"endpoint without host", func() *config.Config { return config.WithDefault().WithEndpoint(*noHost) }},
		{"zero result limit", func() *config.Config { return config.WithDefault().WithResultLimit(0) }},
		{"result limit too large", func() *config.Config { return config.WithDefault().WithResultLimit(501) }},
		{"zero thumb size", func() *config.Config { return config.WithDefault().WithThumbSize(0) }},
		{"negative memo capacity", func() *config.Config { return config.WithDefault().WithMemoCapacity(-1) }},
		{"zero timeout", func() *config.Config { return config.WithDefault().WithTimeout(0) }},
		{"negative base delay", func() *config.Config { return config.WithDefault().WithBaseDelay(-time.Second) }},
		{"zero max attempt", func() *config.Config { return config.WithDefault().WithMaxAttempt(0) }},
		{"shrinking backoff", func() *config.Config { return config.WithDefault().WithBackoffMultiplier(0.5) }},
		{"backoff max below initial", func() *config.Config {
			return config.WithDefault().WithBackoffInitialDuration(time.Minute).WithBackoffMaxDuration(time.Second)
		}},
		{"empty cache dir", func() *config.Config { return config.WithDefault().WithCacheDir("") }},
		{"zero thumbnail size", func() *config.Config { return config.WithDefault().WithMaxThumbnailSize(0) }},
		{"zero thumbnail concurrency", func() *config.Config { return config.WithDefault().WithThumbnailConcurrency(0) }},
		{"zero thumbnail rate", func() *config.Config { return config.WithDefault().WithThumbnailRate(0) }},
		{"unknown log level", func() *config.Config { return config.WithDefault().WithLogLevel("verbose") }},
		{"unknown log format", func() *config.Config { return config.WithDefault().WithLogFormat("xml") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestWithConfigFile_JSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"endpoint": "https://fr.wikipedia.org/w/api.php",
		"resultLimit": 25,
		"memoCapacity": 0,
		"timeout": "2s",
		"baseDelay": 250000000,
		"downloadThumbnails": true,
		"logFormat": "json"
	}`)

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	endpoint := cfg.Endpoint()
	if endpoint.Host != "fr.wikipedia.org" {
		t.Errorf("expected fr.wikipedia.org, got %q", endpoint.Host)
	}
	if cfg.ResultLimit() != 25 {
		t.Errorf("expected ResultLimit 25, got %d", cfg.ResultLimit())
	}
	if cfg.MemoCapacity() != 0 {
		t.Errorf("expected explicit MemoCapacity 0, got %d", cfg.MemoCapacity())
	}
	if cfg.Timeout() != 2*time.Second {
		t.Errorf("expected Timeout 2s, got %v", cfg.Timeout())
	}
	if cfg.BaseDelay() != 250*time.Millisecond {
		t.Errorf("expected BaseDelay 250ms, got %v", cfg.BaseDelay())
	}
	if !cfg.DownloadThumbnails() {
		t.Error("expected DownloadThumbnails true")
	}
	if cfg.LogFormat() != "json" {
		t.Errorf("expected LogFormat json, got %q", cfg.LogFormat())
	}
	// untouched fields keep defaults
	if cfg.ThumbSize() != 96 {
		t.Errorf("expected default ThumbSize 96, got %d", cfg.ThumbSize())
	}
}

func TestWithConfigFile_YAML(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
endpoint: https://en.wikipedia.org/w/api.php
userAgent: yaml-agent/1.0
thumbSize: 200
jitter: 10ms
backoffMaxDuration: 1000000000
thumbnailRate: 2.5
logLevel: debug
`)

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UserAgent() != "yaml-agent/1.0" {
		t.Errorf("expected yaml-agent/1.0, got %q", cfg.UserAgent())
	}
	if cfg.ThumbSize() != 200 {
		t.Errorf("expected ThumbSize 200, got %d", cfg.ThumbSize())
	}
	if cfg.Jitter() != 10*time.Millisecond {
		t.Errorf("expected Jitter 10ms, got %v", cfg.Jitter())
	}
	if cfg.BackoffMaxDuration() != time.Second {
		t.Errorf("expected BackoffMaxDuration 1s, got %v", cfg.BackoffMaxDuration())
	}
	if cfg.ThumbnailRate() != 2.5 {
		t.Errorf("expected ThumbnailRate 2.5, got %v", cfg.ThumbnailRate())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("expected LogLevel debug, got %q", cfg.LogLevel())
	}
}

func TestWithConfigFile_YMLExtension(t *testing.T) {
	path := writeConfigFile(t, "config.yml", "resultLimit: 5\n")

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ResultLimit() != 5 {
		t.Errorf("expected ResultLimit 5, got %d", cfg.ResultLimit())
	}
}

func TestWithConfigFile_TOML(t *testing.T) {
	path := writeConfigFile(t, "config.toml", `
cacheDir = "/var/cache/wikisearch"
maxAttempt = 7
backoffInitialDuration = "100ms"
timeout = 3000000000
thumbnailConcurrency = 8
maxThumbnailSize = 4096
`)

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheDir() != "/var/cache/wikisearch" {
		t.Errorf("expected /var/cache/wikisearch, got %q", cfg.CacheDir())
	}
	if cfg.MaxAttempt() != 7 {
		t.Errorf("expected MaxAttempt 7, got %d", cfg.MaxAttempt())
	}
	if cfg.BackoffInitialDuration() != 100*time.Millisecond {
		t.Errorf("expected BackoffInitialDuration 100ms, got %v", cfg.BackoffInitialDuration())
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("expected Timeout 3s, got %v", cfg.Timeout())
	}
	if cfg.ThumbnailConcurrency() != 8 {
		t.Errorf("expected ThumbnailConcurrency 8, got %d", cfg.ThumbnailConcurrency())
	}
	if cfg.MaxThumbnailSize() != 4096 {
		t.Errorf("expected MaxThumbnailSize 4096, got %d", cfg.MaxThumbnailSize())
	}
}

func TestWithConfigFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "nope.json"))
		if !errors.Is(err, config.ErrFileDoesNotExist) {
			t.Errorf("expected ErrFileDoesNotExist, got %v", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfigFile(t, "config.ini", "resultLimit=5")
		_, err := config.WithConfigFile(path)
		if !errors.Is(err, config.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	parseCases := map[string]string{
		"config.json": `{"resultLimit": `,
		"config.yaml": "resultLimit: [1, 2",
		"config.toml": "resultLimit = ",
	}
	for name, content := range parseCases {
		t.Run("malformed "+name, func(t *testing.T) {
			path := writeConfigFile(t, name, content)
			_, err := config.WithConfigFile(path)
			if !errors.Is(err, config.ErrConfigParsingFail) {
				t.Errorf("expected ErrConfigParsingFail, got %v", err)
			}
		})
	}

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfigFile(t, "config.json", `{"timeout": "soon"}`)
		_, err := config.WithConfigFile(path)
		if !errors.Is(err, config.ErrConfigParsingFail) {
			t.Errorf("expected ErrConfigParsingFail, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfigFile(t, "config.json", `{"resultLimit": 9000}`)
		_, err := config.WithConfigFile(path)
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "resultLimit") {
			t.Errorf("expected error to name resultLimit, got %v", err)
		}
	})
}
