// Package config loads gridops configuration from environment variables.
//
// Values referencing other environment variables with ${VAR} syntax are
// expanded strictly: a missing variable is an error, never an empty string.
package config
