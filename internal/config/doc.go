// Package config handles configuration loading for convo-gateway.
//
// # Configuration File
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
// The command line resolves the path in this order:
//
//  1. --config flag
//  2. CONVO_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/convo/gateway.yaml
//  4. ~/.config/convo/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${CONVO_JWT_SECRET}"
//
// Unset variables expand to the empty string. CONVO_DB_PATH, when set,
// replaces database.path after parsing.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  read_header_timeout: "10s"
//	  shutdown_timeout: "5s"
//
//	database:
//	  driver: "sqlite"        # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "/var/lib/convo/gateway.db"
//
//	auth:
//	  jwt_secret: "${CONVO_JWT_SECRET}"   # protects the close endpoint
//
//	webhook:
//	  max_body_bytes: 1048576
//	  dedupe_ttl: "10m"
//	  dedupe_size: 10000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	  file: ""        # optional JSON log file
//
// Durations use time.ParseDuration syntax.
package config
