// Package cmd provides the command-line interface for TermSpider.
// It handles command parsing, configuration loading, and crawl execution.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/termspider/internal/config"
	"github.com/masahif/termspider/internal/logging"
)

const defaultUserAgent = "TermSpider/1.0"

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "termspider [URLs...]",
	Short: "A focused web crawler that builds weighted term vectors",
	Long: `TermSpider crawls outward from seed URLs, obeying robots.txt, and
stores a weighted term vector for every page it visits.

Stored pages can be ranked against query terms with the search command.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCrawler,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./termspider.yml)")

	// Store and logging flags are shared with the search and stats commands
	rootCmd.PersistentFlags().String("driver", defaults.Database.Driver, "Database driver: 'sqlite' or 'postgres'")
	rootCmd.PersistentFlags().StringP("database", "d", defaults.Database.DSN, "SQLite file path or PostgreSQL connection string")
	rootCmd.PersistentFlags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", defaults.Log.Format, "Log format: json or text")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this rotated file")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Basic crawling flags
	rootCmd.Flags().IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	rootCmd.Flags().DurationP("delay", "r", defaults.RequestDelay, "Delay between requests to the same domain")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().Bool("respect-robots", defaults.RespectRobots, "Obey robots.txt rules")
	rootCmd.Flags().Bool("follow-external-hosts", defaults.FollowExternalHosts, "Queue links to hosts other than the seeds'")
	rootCmd.Flags().IntP("limit", "l", defaults.Limit, "Stop after N stored pages (0=unlimited)")
	rootCmd.Flags().Duration("revisit-after", defaults.RevisitAfter, "Age after which a stored page is crawled again")
	rootCmd.Flags().String("stopwords", "", "Stopword list file (default is the embedded English list)")
	rootCmd.Flags().StringSlice("domain-delay", []string{}, "Per-domain delay override in 'host=duration' form (repeatable)")

	// Basic authentication flags
	rootCmd.Flags().String("auth-username", "", "Username for basic authentication")
	rootCmd.Flags().String("auth-password", "", "Password for basic authentication")

	// HTTP Headers flags
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// URL filtering flags
	rootCmd.Flags().StringSlice("include-patterns", []string{}, "Regex patterns for URLs to include")
	rootCmd.Flags().StringSlice("exclude-patterns", []string{}, "Regex patterns for URLs to exclude")

	// Optional collaborators
	rootCmd.Flags().String("image-tagger", "", "Image tagging service endpoint (disabled when empty)")
	rootCmd.Flags().String("image-tagger-key", "", "API key for the image tagging service")
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"concurrency", "concurrency"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"respect_robots", "respect-robots"},
		{"follow_external_hosts", "follow-external-hosts"},
		{"limit", "limit"},
		{"revisit_after", "revisit-after"},
		{"stopwords_path", "stopwords"},
		{"domain_delays", "domain-delay"},
		{"include_patterns", "include-patterns"},
		{"exclude_patterns", "exclude-patterns"},
		{"headers", "header"},
		{"auth.basic.username", "auth-username"},
		{"auth.basic.password", "auth-password"},
		{"image_tagger.endpoint", "image-tagger"},
		{"image_tagger.api_key", "image-tagger-key"},
		{"metrics.addr", "metrics-addr"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	persistentBinds := map[string]string{
		"database.driver": "driver",
		"database.dsn":    "database",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"log.file":        "log-file",
	}
	for key, flagName := range persistentBinds {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", flagName, err)
		}
	}

	rootCmd.AddCommand(searchCmd, statsCmd)
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env file is the common case
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("termspider")
	}

	// Keys without a flag still need a default for TS_ variables to reach them
	defaults := config.DefaultConfig()
	viper.SetDefault("queue_poll_interval", defaults.QueuePollInterval)
	viper.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	viper.SetDefault("image_tagger.timeout", defaults.ImageTagger.Timeout)
	viper.SetDefault("auth.basic.username_env", "")
	viper.SetDefault("auth.basic.password_env", "")

	viper.AutomaticEnv() // read in environment variables that match
	viper.SetEnvPrefix("TS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper values over the defaults. Positional seeds win
// over seed_urls from the file or environment.
func loadConfig(seeds []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(seeds) > 0 {
		cfg.SeedURLs = seeds
	}
	return cfg, nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("TermSpider/%s", version)
	}
	return "TermSpider/dev"
}

func loggingConfig(cfg *config.CrawlConfig) logging.Config {
	lc := *logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format != "" {
		lc.Format = strings.ToLower(cfg.Log.Format)
	}
	lc.FilePath = cfg.Log.File
	if cfg.Log.MaxSizeMB > 0 {
		lc.MaxSize = cfg.Log.MaxSizeMB
	}
	lc.MaxBackups = cfg.Log.MaxBackups
	lc.Stdout = os.Stderr
	return lc
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current TermSpider Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./termspider.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: TS_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (TS_ prefix, .env is loaded first)\n")
	fmt.Fprintf(w, "# 3. Configuration file (termspider.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runCrawler(cmd *cobra.Command, args []string) error {
	// Handle --show-config flag first
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Update User-Agent with dynamic version if not explicitly set
	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == defaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(cfg.SeedURLs) == 0 {
		return fmt.Errorf("%w\nUsage: %s [URLs...]", config.ErrNoSeedURLs, cmd.CommandPath())
	}

	logger, err := logging.SetDefault(loggingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	runID := uuid.NewString()
	log := logger.With("run_id", runID)
	log.Info("Starting crawler",
		"seeds", cfg.SeedURLs,
		"concurrency", cfg.Concurrency,
		"request_delay", cfg.RequestDelay,
		"limit", cfg.Limit,
		"driver", cfg.Database.Driver,
		"respect_robots", cfg.RespectRobots)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newCrawlSession(cfg, log, runID)
	if err != nil {
		_ = logger.Close()
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}

	runErr := session.run(ctx)
	stats := session.pool.Stats()

	if err := session.Close(); err != nil {
		log.Warn("Failed to release crawl resources", "error", err)
	}
	_ = logger.Close()

	renderCrawlStats(cmd.OutOrStdout(), stats)
	return runErr
}
