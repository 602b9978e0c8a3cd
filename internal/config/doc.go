// Package config loads and validates the TOML configuration for beatforge.
//
// Load applies defaults, decodes an optional config file, expands ~ in paths,
// and validates the result. Other packages receive a *Config and never re-read
// the file.
package config
