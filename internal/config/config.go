package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/storage"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix = "SYSREC"
	configEnv        = "CONFIG"
	configName       = "sysrec"
	configType       = "toml"
)

// Config keys, shared by the TOML file, SYSREC_* variables and flags.
const (
	keyInterval      = "interval"
	keyDatabase      = "database"
	keyLogLevel      = "log_level"
	keyLogFile       = "log_file"
	keyLogMaxSize    = "log_max_size"
	keyLogMaxBackups = "log_max_backups"
	keyLogMaxAge     = "log_max_age"
	keyGPU           = "gpu"
	keyPIDFile       = "pid_file"
)

type Config struct {
	Interval      int    `mapstructure:"interval" validate:"min=1,max=86400"`
	Database      string `mapstructure:"database" validate:"required"`
	LogLevel      string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSize    int    `mapstructure:"log_max_size" validate:"min=1"`
	LogMaxBackups int    `mapstructure:"log_max_backups" validate:"min=0"`
	LogMaxAge     int    `mapstructure:"log_max_age" validate:"min=0"`
	GPU           bool   `mapstructure:"gpu"`
	PIDFile       string `mapstructure:"pid_file"`
}

// IntervalDuration returns the sampling interval.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
	}
}

func (c *Config) Storage() storage.Config {
	return storage.Config{DBPath: c.Database}
}

func defaults() map[string]any {
	return map[string]any{
		keyInterval:      10,
		keyDatabase:      "sysrec.db",
		keyLogLevel:      "warn",
		keyLogFile:       "sysrec.log",
		keyLogMaxSize:    10,
		keyLogMaxBackups: 3,
		keyLogMaxAge:     28,
		keyGPU:           true,
		keyPIDFile:       "",
	}
}

// RegisterFlags defines the command line flags read by New.
func RegisterFlags(flags *pflag.FlagSet) {
	d := defaults()
	flags.String("config", "", "Path to a TOML configuration file")
	flags.Int(keyInterval, d[keyInterval].(int), "Seconds between samples")
	flags.String(keyDatabase, d[keyDatabase].(string), "Path to the SQLite database")
	flags.String(flagName(keyLogLevel), d[keyLogLevel].(string), "Log level (debug, info, warn, error)")
	flags.String(flagName(keyLogFile), d[keyLogFile].(string), "Log file, empty logs to stderr")
	flags.Bool(keyGPU, d[keyGPU].(bool), "Record NVIDIA GPU temperatures")
	flags.String(flagName(keyPIDFile), d[keyPIDFile].(string), "PID file guarding against a second recorder")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Loader reads configuration, in rising priority, from defaults, the TOML
// file, the environment and flags.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
}

var _ Watcher = (*Loader)(nil)

// New prepares a loader and binds every flag RegisterFlags defined on flags.
// flags may be nil.
func New(flags *pflag.FlagSet, opts ...Option) (*Loader, error) {
	errFactory := errors.New()

	o := options{
		envPrefix:   defaultEnvPrefix,
		searchPaths: defaultSearchPaths(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			o.configPath = f.Value.String()
		}
		for key := range defaults() {
			f := flags.Lookup(flagName(key))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_" + configEnv)
	}

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		v.SetConfigType(configType)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, p := range o.searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return &Loader{v: v, validate: newValidator()}, nil
}

func defaultSearchPaths() []string {
	paths := []string{"/etc/sysrec"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sysrec"))
	}

	return append(paths, ".")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("mapstructure")
	})

	return validate
}

// Load is a shorthand for New followed by Loader.Load.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	l, err := New(flags, opts...)
	if err != nil {
		return nil, err
	}

	return l.Load()
}

// Load decodes and validates the current configuration.
func (l *Loader) Load() (*Config, error) {
	errFactory := errors.New()

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := l.validate.Struct(&cfg); err != nil {
		return nil, validationError(err)
	}

	return &cfg, nil
}

// validationError maps the first failing field to its error code.
func validationError(err error) error {
	errFactory := errors.New()

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case keyInterval:
		return errFactory.WithData(errors.ErrInvalidInterval, fe.Value())
	case keyLogLevel:
		return errFactory.WithData(errors.ErrInvalidLogLevel, fe.Value())
	default:
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
}

// FileUsed returns the configuration file that was read, if any.
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever its file changes and hands each
// valid result to callback. Invalid reloads are logged and skipped. Changes
// arriving after ctx is done are ignored.
func (l *Loader) Watch(ctx context.Context, callback func(*Config)) error {
	if l.FileUsed() == "" {
		return errors.New().WithMessage(errors.ErrReadConfig, "No configuration file to watch")
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}

		cfg, err := l.Load()
		if err != nil {
			logger.ErrorWithCode(err).Str("file", e.Name).Msg("Ignoring invalid configuration change")
			return
		}

		logger.Info().Str("file", e.Name).Msg("Configuration reloaded")
		callback(cfg)
	})
	l.v.WatchConfig()

	return nil
}
