package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint  = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent = "wikisearch/0.1 (https://github.com/rohmanhakim/wikisearch)"

	// maxResultLimit is the largest gaplimit/pilimit the API accepts for regular clients.
	maxResultLimit = 500
)

type Config struct {
	//===============
	// Remote API
	//===============
	// MediaWiki API endpoint the prefix query is sent to
	endpoint url.URL
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Maximum time of a single HTTP request
	timeout time.Duration
	// Number of pages asked for per search (gaplimit and pilimit)
	resultLimit int
	// Requested thumbnail width in pixels (pithumbsize)
	thumbSize int

	//===============
	// Memo
	//===============
	// Number of recent result lists kept strongly reachable; the rest may be
	// reclaimed by the garbage collector at any time
	memoCapacity int

	//===============
	// Politeness
	//===============
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Thumbnails
	//===============
	// Whether thumbnails of delivered results are downloaded
	downloadThumbnails bool
	// Root directory of the on-disk thumbnail cache
	cacheDir string
	// Largest thumbnail accepted, in bytes
	maxThumbnailSize int64
	// Maximum number of thumbnail downloads running at once
	thumbnailConcurrency int
	// Sustained thumbnail downloads per second
	thumbnailRate float64

	//===============
	// Logging
	//===============
	// debug, info, warn or error
	logLevel string
	// text or json
	logFormat string
}

type configDTO struct {
	Endpoint               string   `json:"endpoint,omitempty" yaml:"endpoint" toml:"endpoint"`
	UserAgent              string   `json:"userAgent,omitempty" yaml:"userAgent" toml:"userAgent"`
	Timeout                duration `json:"timeout,omitempty" yaml:"timeout" toml:"timeout"`
	ResultLimit            int      `json:"resultLimit,omitempty" yaml:"resultLimit" toml:"resultLimit"`
	ThumbSize              int      `json:"thumbSize,omitempty" yaml:"thumbSize" toml:"thumbSize"`
	MemoCapacity           *int     `json:"memoCapacity,omitempty" yaml:"memoCapacity" toml:"memoCapacity"`
	BaseDelay              duration `json:"baseDelay,omitempty" yaml:"baseDelay" toml:"baseDelay"`
	Jitter                 duration `json:"jitter,omitempty" yaml:"jitter" toml:"jitter"`
	RandomSeed             int64    `json:"randomSeed,omitempty" yaml:"randomSeed" toml:"randomSeed"`
	MaxAttempt             int      `json:"maxAttempt,omitempty" yaml:"maxAttempt" toml:"maxAttempt"`
	BackoffInitialDuration duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration" toml:"backoffInitialDuration"`
	BackoffMultiplier      float64  `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier" toml:"backoffMultiplier"`
	BackoffMaxDuration     duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration" toml:"backoffMaxDuration"`
	DownloadThumbnails     bool     `json:"downloadThumbnails,omitempty" yaml:"downloadThumbnails" toml:"downloadThumbnails"`
	CacheDir               string   `json:"cacheDir,omitempty" yaml:"cacheDir" toml:"cacheDir"`
	MaxThumbnailSize       int64    `json:"maxThumbnailSize,omitempty" yaml:"maxThumbnailSize" toml:"maxThumbnailSize"`
	ThumbnailConcurrency   int      `json:"thumbnailConcurrency,omitempty" yaml:"thumbnailConcurrency" toml:"thumbnailConcurrency"`
	ThumbnailRate          float64  `json:"thumbnailRate,omitempty" yaml:"thumbnailRate" toml:"thumbnailRate"`
	LogLevel               string   `json:"logLevel,omitempty" yaml:"logLevel" toml:"logLevel"`
	LogFormat              string   `json:"logFormat,omitempty" yaml:"logFormat" toml:"logFormat"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Only override if a non-zero value is provided
	if dto.Endpoint != "" {
		endpoint, err := url.Parse(dto.Endpoint)
		if err != nil {
			return Config{}, fmt.Errorf("%w: endpoint: %s", ErrInvalidConfig, err.Error())
		}
		cfg.endpoint = *endpoint
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.Timeout != 0 {
		cfg.timeout = time.Duration(dto.Timeout)
	}
	if dto.ResultLimit != 0 {
		cfg.resultLimit = dto.ResultLimit
	}
	if dto.ThumbSize != 0 {
		cfg.thumbSize = dto.ThumbSize
	}
	// memoCapacity 0 is meaningful (pin nothing), so presence is what counts
	if dto.MemoCapacity != nil {
		cfg.memoCapacity = *dto.MemoCapacity
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = time.Duration(dto.BaseDelay)
	}
	if dto.Jitter != 0 {
		cfg.jitter = time.Duration(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = time.Duration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = time.Duration(dto.BackoffMaxDuration)
	}
	cfg.downloadThumbnails = dto.DownloadThumbnails
	if dto.CacheDir != "" {
		cfg.cacheDir = dto.CacheDir
	}
	if dto.MaxThumbnailSize != 0 {
		cfg.maxThumbnailSize = dto.MaxThumbnailSize
	}
	if dto.ThumbnailConcurrency != 0 {
		cfg.thumbnailConcurrency = dto.ThumbnailConcurrency
	}
	if dto.ThumbnailRate != 0 {
		cfg.thumbnailRate = dto.ThumbnailRate
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}

	return cfg.Build()
}

// WithConfigFile loads a config file. The format follows the extension:
// .json, .yaml/.yml or .toml. Fields missing from the file keep their defaults.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(configContent, &cfgDTO)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	case ".toml":
		_, err = toml.Decode(string(configContent), &cfgDTO)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	endpoint, _ := url.Parse(DefaultEndpoint)
	defaultConfig := Config{
		endpoint:               *endpoint,
		userAgent:              DefaultUserAgent,
		timeout:                10 * time.Second,
		resultLimit:            50,
		thumbSize:              96,
		memoCapacity:           64,
		baseDelay:              100 * time.Millisecond,
		jitter:                 50 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             3,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     5 * time.Second,
		downloadThumbnails:     false,
		cacheDir:               defaultCacheDir(),
		maxThumbnailSize:       2 << 20,
		thumbnailConcurrency:   4,
		thumbnailRate:          10,
		logLevel:               "info",
		logFormat:              "text",
	}
	return &defaultConfig
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "wikisearch")
	}
	return ".wikisearch-cache"
}

func (c *Config) WithEndpoint(endpoint url.URL) *Config {
	c.endpoint = endpoint
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithResultLimit(limit int) *Config {
	c.resultLimit = limit
	return c
}

func (c *Config) WithThumbSize(size int) *Config {
	c.thumbSize = size
	return c
}

func (c *Config) WithMemoCapacity(capacity int) *Config {
	c.memoCapacity = capacity
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithDownloadThumbnails(download bool) *Config {
	c.downloadThumbnails = download
	return c
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithMaxThumbnailSize(size int64) *Config {
	c.maxThumbnailSize = size
	return c
}

func (c *Config) WithThumbnailConcurrency(concurrency int) *Config {
	c.thumbnailConcurrency = concurrency
	return c
}

func (c *Config) WithThumbnailRate(perSecond float64) *Config {
	c.thumbnailRate = perSecond
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if c.endpoint.Scheme != "http" && c.endpoint.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: endpoint must be an http(s) URL, got %q", ErrInvalidConfig, c.endpoint.String())
	}
	if c.endpoint.Host == "" {
		return Config{}, fmt.Errorf("%w: endpoint has no host", ErrInvalidConfig)
	}
	if c.resultLimit < 1 || c.resultLimit > maxResultLimit {
		return Config{}, fmt.Errorf("%w: resultLimit must be within 1..%d, got %d", ErrInvalidConfig, maxResultLimit, c.resultLimit)
	}
	if c.thumbSize < 1 {
		return Config{}, fmt.Errorf("%w: thumbSize must be positive, got %d", ErrInvalidConfig, c.thumbSize)
	}
	if c.memoCapacity < 0 {
		return Config{}, fmt.Errorf("%w: memoCapacity cannot be negative, got %d", ErrInvalidConfig, c.memoCapacity)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.baseDelay < 0 || c.jitter < 0 {
		return Config{}, fmt.Errorf("%w: baseDelay and jitter cannot be negative", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be at least 1, got %v", ErrInvalidConfig, c.backoffMultiplier)
	}
	if c.backoffMaxDuration < c.backoffInitialDuration {
		return Config{}, fmt.Errorf("%w: backoffMaxDuration is shorter than backoffInitialDuration", ErrInvalidConfig)
	}
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty", ErrInvalidConfig)
	}
	if c.maxThumbnailSize < 1 {
		return Config{}, fmt.Errorf("%w: maxThumbnailSize must be positive, got %d", ErrInvalidConfig, c.maxThumbnailSize)
	}
	if c.thumbnailConcurrency < 1 {
		return Config{}, fmt.Errorf("%w: thumbnailConcurrency must be at least 1, got %d", ErrInvalidConfig, c.thumbnailConcurrency)
	}
	if c.thumbnailRate <= 0 {
		return Config{}, fmt.Errorf("%w: thumbnailRate must be positive, got %v", ErrInvalidConfig, c.thumbnailRate)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("%w: unknown logLevel %q", ErrInvalidConfig, c.logLevel)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("%w: unknown logFormat %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) Endpoint() url.URL {
	return c.endpoint
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) ResultLimit() int {
	return c.resultLimit
}

func (c Config) ThumbSize() int {
	return c.thumbSize
}

func (c Config) MemoCapacity() int {
	return c.memoCapacity
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) DownloadThumbnails() bool {
	return c.downloadThumbnails
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) MaxThumbnailSize() int64 {
	return c.maxThumbnailSize
}

func (c Config) ThumbnailConcurrency() int {
	return c.thumbnailConcurrency
}

func (c Config) ThumbnailRate() float64 {
	return c.thumbnailRate
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
