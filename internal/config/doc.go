// Package config loads and validates the service configuration from a YAML
// file, with environment variable expansion for credentials.
package config
