// Package config provides the run configuration for cachescan: defaults,
// validation, and the optional YAML config file.
package config
