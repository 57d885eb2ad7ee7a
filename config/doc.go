// Package config provides configuration loading and validation for servefile.
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
//  3. Environment variables (SERVEFILE_ prefix)
//  4. CLI flags, only when explicitly set
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
// All config keys map to environment variables with SERVEFILE_ prefix:
//   - server.port → SERVEFILE_SERVER_PORT
//   - serve.root → SERVEFILE_SERVE_ROOT
//   - digest_cache.dsn → SERVEFILE_DIGEST_CACHE_DSN
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, timeouts, and the planning pool size
//   - Serve: root directory, index file, listing, symlinks, encodings, ETags, ranges
//   - DigestCache: optional memory, sqlite, or postgres store for strong ETags
//   - CORS: cross-origin resource sharing settings
//   - Metrics: Prometheus listener
//   - Log: logging level
//
// # MIME Types
//
// serve.mime_types_file names a YAML map from extension to media type that
// is merged over the built-in table:
//
//	.webmanifest: application/manifest+json
//	wasm: application/wasm
package config
