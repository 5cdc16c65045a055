package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "lingolens"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "LINGOLENS"

	// DotEnvFile is the optional file of environment variables read before
	// the environment is consulted.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader over the global viper instance, so flags bound
// with viper.BindPFlag take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader over an isolated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load resolves configuration from the first lingolens.yaml found on the
// search paths, the environment and defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// BindFlag binds a command-line flag to a configuration key. Unknown flags
// are reported so a typo in a flag name does not silently unbind it.
func (l *Loader) BindFlag(key string, flags *pflag.FlagSet, flagName string) error {
	f := flags.Lookup(flagName)
	if f == nil {
		return fmt.Errorf("flag --%s is not defined", flagName)
	}
	return l.v.BindPFlag(key, f)
}

// BindFlags binds each key to the flag of the same name in flags, after
// mapping dots and underscores to dashes ("server.max_upload_mb" binds
// --max-upload-mb). Keys without such a flag are skipped.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		name := FlagName(key)
		if flags.Lookup(name) == nil {
			continue
		}
		if err := l.BindFlag(key, flags, name); err != nil {
			return err
		}
	}
	return nil
}

// FlagName returns the flag name for the last segment of a configuration key.
func FlagName(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	return strings.ReplaceAll(key, "_", "-")
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Current unmarshals the configuration as resolved right now, including
// flags bound after the initial load.
func (l *Loader) Current() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// LINGOLENS_SERVER_PORT resolves server.port
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every default so AutomaticEnv can resolve nested keys
// that no config file mentions.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("capture.target", d.Capture.Target)
	l.v.SetDefault("capture.frame_rate", d.Capture.FrameRate)
	l.v.SetDefault("capture.loop", d.Capture.Loop)

	l.v.SetDefault("detector.min_confidence", d.Detector.MinConfidence)
	l.v.SetDefault("detector.contrast_boost", d.Detector.ContrastBoost)
	l.v.SetDefault("detector.sharpen_sigma", d.Detector.SharpenSigma)
	l.v.SetDefault("detector.upscale_factor", d.Detector.UpscaleFactor)
	l.v.SetDefault("detector.merge_overlap", d.Detector.MergeOverlap)
	l.v.SetDefault("detector.language_hints", d.Detector.LanguageHints)
	l.v.SetDefault("detector.inverted_pass", d.Detector.InvertedPass)

	l.v.SetDefault("filter.min_confidence", d.Filter.MinConfidence)
	l.v.SetDefault("filter.latin_threshold", d.Filter.LatinThreshold)

	l.v.SetDefault("translation.backend", d.Translation.Backend)
	l.v.SetDefault("translation.glossary", d.Translation.Glossary)
	l.v.SetDefault("translation.cache_policy", d.Translation.CachePolicy)
	l.v.SetDefault("translation.cache_capacity", d.Translation.CacheCapacity)
	l.v.SetDefault("translation.http.endpoint", d.Translation.HTTP.Endpoint)
	l.v.SetDefault("translation.http.source", d.Translation.HTTP.Source)
	l.v.SetDefault("translation.http.target", d.Translation.HTTP.Target)
	l.v.SetDefault("translation.http.api_key", d.Translation.HTTP.APIKey)
	l.v.SetDefault("translation.http.timeout_sec", d.Translation.HTTP.TimeoutSec)
	l.v.SetDefault("translation.http.max_retries", d.Translation.HTTP.MaxRetries)
	l.v.SetDefault("translation.http.breaker_threshold", d.Translation.HTTP.BreakerThreshold)
	l.v.SetDefault("translation.http.breaker_reset_sec", d.Translation.HTTP.BreakerResetSec)

	l.v.SetDefault("compositor.margin", d.Compositor.Margin)
	l.v.SetDefault("compositor.sample_inset", d.Compositor.SampleInset)
	l.v.SetDefault("compositor.font_scale", d.Compositor.FontScale)
	l.v.SetDefault("compositor.min_font_size", d.Compositor.MinFontSize)
	l.v.SetDefault("compositor.padding_fraction", d.Compositor.PaddingFraction)
	l.v.SetDefault("compositor.avg_char_width", d.Compositor.AvgCharWidth)
	l.v.SetDefault("compositor.fallback_color", d.Compositor.FallbackColor)
	l.v.SetDefault("compositor.debug_outline", d.Compositor.DebugOutline)

	l.v.SetDefault("pipeline.stats_window", d.Pipeline.StatsWindow)
	l.v.SetDefault("pipeline.buffer_capacity", d.Pipeline.BufferCapacity)
	l.v.SetDefault("pipeline.output_buffer", d.Pipeline.OutputBuffer)
	l.v.SetDefault("pipeline.skip_unchanged", d.Pipeline.SkipUnchanged)
	l.v.SetDefault("pipeline.max_hash_distance", d.Pipeline.MaxHashDistance)
	l.v.SetDefault("pipeline.max_image_size", d.Pipeline.MaxImageSize)

	l.v.SetDefault("output.dir", d.Output.Dir)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.send_images", d.Server.SendImages)
	l.v.SetDefault("server.client_queue", d.Server.ClientQueue)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.max_data_per_day", d.Server.RateLimit.MaxDataPerDay)
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a configuration file holding every default.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, filepath.Join("/etc", ConfigFileName))
}
