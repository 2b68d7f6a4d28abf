// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source. Missing config files
// are not an error; defaults and SNEP_* environment overrides still apply.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// configDirOverride replaces the platform config directory in tests, where
// os.UserHomeDir() does not reliably honor HOME.
var configDirOverride string

// SetConfigDirOverride sets a custom config directory path for tests.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// Reset clears test overrides.
func Reset() { configDirOverride = "" }
