// Package config loads the adapter configuration from a YAML (or JSON) file,
// applies defaults and lets environment variables, optionally read from a
// .env file, override the connection and credential fields.
package config
