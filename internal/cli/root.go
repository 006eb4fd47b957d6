package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile              string
	endpoint             string
	userAgent            string
	timeout              time.Duration
	resultLimit          int
	thumbSize            int
	memoCapacity         int
	baseDelay            time.Duration
	jitter               time.Duration
	randomSeed           int64
	maxAttempt           int
	downloadThumbnails   bool
	cacheDir             string
	maxThumbnailSize     int64
	thumbnailConcurrency int
	thumbnailRate        float64
	logLevel             string
	logFormat            string
	interval             time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wikisearch [terms...]",
	Short: "Search-as-you-type against the Wikipedia API.",
	Long: `wikisearch replays a stream of search-box updates against the Wikipedia
prefix search API and prints the results as they arrive.

Every argument (or, without arguments, every line read from stdin) is one
update of the search box. At most one request is in flight at a time; updates
typed while it runs collapse into the most recent one, and results already
seen are answered from memory.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		terms := args
		if len(terms) == 0 {
			var err error
			terms, err = readTerms(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("error reading terms from stdin: %w", err)
			}
		}
		if len(terms) == 0 {
			return fmt.Errorf("no search terms given: pass them as arguments or on stdin")
		}

		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.LogFormat())
		if err != nil {
			return err
		}

		session := Session{
			Config:   cfg,
			Interval: interval,
			Out:      cmd.OutOrStdout(),
			Logger:   logger,
		}
		_, err = session.Run(cmd.Context(), terms)
		return err
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path (.json, .yaml or .toml); flags are ignored when set")
	flags.StringVar(&endpoint, "endpoint", "", "MediaWiki API endpoint (default "+config.DefaultEndpoint+")")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.DurationVar(&timeout, "timeout", 0, "timeout for a single HTTP request")
	flags.IntVar(&resultLimit, "limit", 0, "number of pages requested per search")
	flags.IntVar(&thumbSize, "thumb-size", 0, "requested thumbnail width in pixels")
	flags.IntVar(&memoCapacity, "memo-capacity", -1, "number of recent result lists pinned in memory (0 pins none)")
	flags.DurationVar(&baseDelay, "base-delay", 0, "minimum delay between two API requests")
	flags.DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	flags.IntVar(&maxAttempt, "max-attempt", 0, "maximum attempts per request")
	flags.BoolVar(&downloadThumbnails, "thumbnails", false, "download thumbnails of delivered results")
	flags.StringVar(&cacheDir, "cache-dir", "", "directory of the thumbnail cache")
	flags.Int64Var(&maxThumbnailSize, "max-thumbnail-size", 0, "largest thumbnail accepted, in bytes")
	flags.IntVar(&thumbnailConcurrency, "thumbnail-concurrency", 0, "number of parallel thumbnail downloads")
	flags.Float64Var(&thumbnailRate, "thumbnail-rate", 0, "thumbnail downloads per second")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "pause between two search-box updates")
}

// readTerms returns one term per input line, in order.
func readTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		terms = append(terms, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return terms, nil
}

// InitConfigWithError builds the config from the config file when one is
// given, otherwise from the defaults overridden by the flags that were set.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	configBuilder := config.WithDefault()

	if endpoint != "" {
		parsedEndpoint, err := url.Parse(endpoint)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: endpoint: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithEndpoint(*parsedEndpoint)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if resultLimit != 0 {
		configBuilder = configBuilder.WithResultLimit(resultLimit)
	}

	if thumbSize != 0 {
		configBuilder = configBuilder.WithThumbSize(thumbSize)
	}

	if memoCapacity >= 0 {
		configBuilder = configBuilder.WithMemoCapacity(memoCapacity)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if maxAttempt != 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if downloadThumbnails {
		configBuilder = configBuilder.WithDownloadThumbnails(true)
	}

	if cacheDir != "" {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}

	if maxThumbnailSize != 0 {
		configBuilder = configBuilder.WithMaxThumbnailSize(maxThumbnailSize)
	}

	if thumbnailConcurrency != 0 {
		configBuilder = configBuilder.WithThumbnailConcurrency(thumbnailConcurrency)
	}

	if thumbnailRate != 0 {
		configBuilder = configBuilder.WithThumbnailRate(thumbnailRate)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	endpoint = ""
	userAgent = ""
	timeout = 0
	resultLimit = 0
	thumbSize = 0
	memoCapacity = -1
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	maxAttempt = 0
	downloadThumbnails = false
	cacheDir = ""
	maxThumbnailSize = 0
	thumbnailConcurrency = 0
	thumbnailRate = 0
	logLevel = ""
	logFormat = ""
	interval = 0
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetEndpointForTest(raw string) {
	endpoint = raw
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetResultLimitForTest(limit int) {
	resultLimit = limit
}

func SetMemoCapacityForTest(capacity int) {
	memoCapacity = capacity
}

func SetBaseDelayForTest(delay time.Duration) {
	baseDelay = delay
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetDownloadThumbnailsForTest(download bool) {
	downloadThumbnails = download
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

func SetLogFormatForTest(format string) {
	logFormat = format
}

// ExecuteForTest runs the command tree with the given arguments and streams.
func ExecuteForTest(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	return rootCmd.ExecuteContext(ctx)
}
