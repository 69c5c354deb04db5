// Package config provides configuration loading and validation for filedepot.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEDEPOT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEDEPOT_ prefix:
//   - server.port → FILEDEPOT_SERVER_PORT
//   - database.type → FILEDEPOT_DATABASE_TYPE
//   - storage.path → FILEDEPOT_STORAGE_PATH
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and max_upload_size
//   - Database: type, DSN, and table names
//   - Storage: file storage path
//   - Collections: the named collections to register at startup
//   - Auth: bearer tokens for read and write route groups
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - At least one collection must be configured
//   - Log level must be debug, info, warn, or error
package config
