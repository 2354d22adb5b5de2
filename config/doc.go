// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Detection thresholds default to the values the product shipped with, so
// a config file only needs to override what differs.
package config
