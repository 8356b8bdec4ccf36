// Package config loads, normalizes, and validates splice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPLICE_BASE_DIR and SPLICE_CMDPOST_PATH. The watch-folder and log directory
// default to locations under the base directory so a single setting moves the
// whole delivery layout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
