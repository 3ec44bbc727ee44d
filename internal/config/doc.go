// Package config provides centralized configuration management for Agency Pulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority, .env is read into the environment)
//	2. Configuration file (config.yaml, configs/config.yaml or AGENCY_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern AGENCY_<SECTION>_<KEY>:
//
//	AGENCY_SERVER_PORT=8080
//	AGENCY_DATA_DATASET=data/finalapi.csv
//	AGENCY_DATA_RETENTION_HIGH=0.8
//	AGENCY_SECURITY_ACCESS_ENABLED=true
//	AGENCY_SECURITY_ACCESS_TOKEN_HASH=$2a$10$...
//	AGENCY_LOGGING_LEVEL=info
//
// # Validation
//
// Values are checked with struct tags after all sources are merged; an
// invalid configuration fails Load with every violated rule listed.
package config
