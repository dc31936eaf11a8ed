// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Broker credentials are not part of the YAML file; LoadCredentials reads them
// from the environment, optionally seeded from a dotenv secrets file.
package config
