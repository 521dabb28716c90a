// Package config provides centralized configuration management for the
// gateway, supporting a YAML configuration file with environment variable
// fallback for the upstream credential and typed accessors for downstream
// services.
package config
