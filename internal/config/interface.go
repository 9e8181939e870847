package config

import "context"

// Watcher enables live configuration updates
type Watcher interface {
	// Watch starts watching the configuration file for changes.
	// The callback receives every reloaded configuration that validates.
	Watch(ctx context.Context, callback func(*Config)) error
}

// Option defines a configuration option that can be passed to New
type Option func(*options)

// options holds internal configuration options
type options struct {
	configPath  string
	envPrefix   string
	searchPaths []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "SYSREC"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithSearchPaths replaces the directories searched for sysrec.toml
func WithSearchPaths(paths ...string) Option {
	return func(o *options) {
		o.searchPaths = paths
	}
}
