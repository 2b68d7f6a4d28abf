// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the --config path, else $XDG_CONFIG_HOME/snep/config.cue
// (~/Library/Application Support/snep/config.cue on macOS, %APPDATA%\snep\config.cue on
// Windows), else ./config.cue. Files are validated against the embedded CUE schema
// (config_schema.cue); SNEP_* environment variables override file values.
package config
