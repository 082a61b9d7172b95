// Package config handles configuration loading, parsing, and validation
// from defaults, an optional YAML file and environment variables. It gives
// the rest of the application typed access to its settings.
package config
