package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel        = LogLevelWarning
	DefaultFormat          = FormatText
	DefaultPredictionDelay = 1500 * time.Millisecond
	DefaultListen          = "127.0.0.1:8080"
	DefaultHistoryDB       = "/var/lib/dcrmctl/history.db"
	DefaultBatchSize       = 1
	DefaultBatchTimeout    = 5

	defaultEnvPrefix = "DCRMCTL"
	configName       = "dcrmctl"
	configType       = "toml"
)

type Config struct {
	LogLevel        string            `mapstructure:"log_level"`
	Format          string            `mapstructure:"format"`
	Predict         bool              `mapstructure:"predict"`
	PredictionDelay time.Duration     `mapstructure:"prediction_delay"`
	Strict          bool              `mapstructure:"strict"`
	Serve           bool              `mapstructure:"serve"`
	Listen          string            `mapstructure:"listen"`
	PIDFile         string            `mapstructure:"pid_file"`
	AllowedOrigins  []string          `mapstructure:"allowed_origins"`
	History         bool              `mapstructure:"history"`
	HistoryDB       string            `mapstructure:"history_db"`
	BatchSize       int               `mapstructure:"history_batch_size"`
	BatchTimeout    int               `mapstructure:"history_batch_timeout"`
	Metadata        metadata.Metadata `mapstructure:"metadata"`

	// Files holds the positional trace paths
	Files []string `mapstructure:"-"`
	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// flag name -> viper key
var flagKeys = map[string]string{
	"log-level":             "log_level",
	"format":                "format",
	"predict":               "predict",
	"prediction-delay":      "prediction_delay",
	"strict":                "strict",
	"serve":                 "serve",
	"listen":                "listen",
	"pid-file":              "pid_file",
	"allow-origin":          "allowed_origins",
	"history":               "history",
	"history-db":            "history_db",
	"history-batch-size":    "history_batch_size",
	"history-batch-timeout": "history_batch_timeout",
	"breaker-id":            "metadata.breaker_id",
	"substation":            "metadata.substation",
	"manufacturer":          "metadata.manufacturer",
	"operation":             "metadata.operation",
	"test-date":             "metadata.test_date",
	"operator":              "metadata.operator",
	"notes":                 "metadata.notes",
}

// NewFlagSet defines every command line flag
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("config", "", "Path to a TOML configuration file")
	fs.String("log-level", string(DefaultLogLevel), "Log level: debug, info, warning or error")
	fs.StringP("format", "f", string(DefaultFormat), "Report format: text, json or yaml")
	fs.BoolP("predict", "p", false, "Request a prediction for each trace")
	fs.Duration("prediction-delay", DefaultPredictionDelay, "Artificial delay of the mock predictor")
	fs.Bool("strict", false, "Reject traces containing malformed lines")
	fs.Bool("serve", false, "Serve the HTTP API instead of analyzing files")
	fs.String("listen", DefaultListen, "HTTP listen address")
	fs.StringSlice("allow-origin", nil, "Origins allowed to call the HTTP API (repeatable)")
	fs.String("pid-file", "", "PID file guarding a single API server (default in the temp dir)")
	fs.Bool("history", false, "Store analyses in the history database")
	fs.String("history-db", DefaultHistoryDB, "Path to the history database")
	fs.Int("history-batch-size", DefaultBatchSize, "Analyses buffered before a history write")
	fs.Int("history-batch-timeout", DefaultBatchTimeout, "Seconds between history flushes of partial batches")

	fs.String("breaker-id", "", "Breaker identifier")
	fs.String("substation", "", "Substation name")
	fs.String("manufacturer", "", "Breaker manufacturer")
	fs.String("operation", "", "Breaker operation: open, close or close-open")
	fs.String("test-date", "", "Test date (YYYY-MM-DD)")
	fs.String("operator", "", "Test operator")
	fs.String("notes", "", "Free-form notes")

	return fs
}

// Load builds the configuration from flags, environment and the optional
// TOML file. Flags win over environment, environment over the file.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:   defaultEnvPrefix,
		searchPaths: defaultSearchPaths(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := NewFlagSet(configName)
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	configPath := o.configPath
	if f := fs.Lookup("config"); f.Changed {
		configPath = f.Value.String()
	} else if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	cfg := &Config{}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, path := range o.searchPaths {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.Files = fs.Args()
	cfg.Metadata = cfg.Metadata.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if !Format(strings.ToLower(c.Format)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidFormat, c.Format)
	}
	if c.PredictionDelay < 0 {
		return errFactory.WithData(errors.ErrInvalidDelay, c.PredictionDelay.String())
	}
	if c.Serve && c.Listen == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "listen address is required in serve mode")
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history batch settings must not be negative")
	}
	if err := c.Metadata.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func defaultSearchPaths() []string {
	paths := []string{"/etc/dcrmctl"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, dir+"/dcrmctl")
	}
	return append(paths, ".")
}
