// Package config loads daemon configuration.
//
// Configuration is resolved in three layers: built-in defaults, then an
// optional YAML file named by AWG_CONFIG_FILE, then AWG_* environment
// variables, which win. LoadConfig validates the merged result so the rest
// of the daemon can assume a usable configuration.
package config
