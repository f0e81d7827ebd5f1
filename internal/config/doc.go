// Package config loads uid server and client configuration. It exposes
// defaults, JSON/YAML file loading, an environment overlay and validation.
//
// Example:
//
//	cfg, err := config.Load("/etc/uid.yaml") // "" yields defaults
//	if err != nil { /* ... */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Server.Validate(); err != nil { /* ... */ }
//
// Server variables use the UID_ prefix (UID_INDEX_START, UID_PORT, ...).
// Client variables keep their historical names: SYS_UID_SERVER_HOST_NAME,
// SYS_UID_SERVER_PORT, SYS_UID_FAILSAFE_SERVER_HOST_NAME and
// SYS_UID_FAILSAFE_SERVER_PORT.
package config
