package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MeKo-Tech/lingolens/internal/config"
	"github.com/MeKo-Tech/lingolens/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Configuration loader of the current invocation.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// flagKeys are the configuration keys bound to the flag of the same name
// (see config.FlagName) on whichever command defines it.
var flagKeys = []string{
	"verbose",
	"log_level",
	"capture.target",
	"capture.frame_rate",
	"capture.loop",
	"translation.backend",
	"translation.glossary",
	"translation.cache_policy",
	"translation.cache_capacity",
	"translation.http.endpoint",
	"pipeline.skip_unchanged",
	"server.host",
	"server.port",
	"server.cors_origin",
	"server.send_images",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lingolens",
	Short: "Live screen translation pipeline",
	Long: `lingolens translates the text shown in a stream of captured frames.

Each frame runs through text detection, a filter that skips text which needs
no translation, a cached batch translation and an overlay compositor that
paints the translations over the original text.

Examples:
  lingolens translate screenshot.png --glossary glossary.yaml
  lingolens run ./frames --frame-rate 2 --output translated
  lingolens serve --port 8080 --autostart`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "lingolens version "+version.String())
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is lingolens.yaml in ., $HOME, $XDG_CONFIG_HOME/lingolens, /etc/lingolens)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")
}

// loadConfig resolves the configuration for this invocation with flags bound.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	configLoader = config.NewLoaderWithViper(viper.New())
	if err := configLoader.BindFlags(flags, flagKeys...); err != nil {
		return nil, err
	}
	for key, name := range map[string]string{
		"output.dir":                            "output",
		"server.max_upload_mb":                  "max-upload-size",
		"server.rate_limit.requests_per_minute": "requests-per-minute",
	} {
		if flags.Lookup(name) != nil {
			if err := configLoader.BindFlag(key, flags, name); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// GetConfig returns the configuration of the current invocation.
func GetConfig() (*config.Config, error) {
	if configLoader == nil {
		return config.NewLoaderWithViper(viper.New()).Load()
	}
	return configLoader.Current()
}
