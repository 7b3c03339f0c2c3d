// Package config handles application configuration loading and validation.
//
// Configuration is read from environment variables (optionally seeded from a
// .env file) with sensible defaults. Values are validated at startup to fail
// fast if misconfigured; a missing metadata API key is not an error and falls
// back to a placeholder key.
package config
