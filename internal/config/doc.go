// Package config loads, normalizes, and validates importer configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the Airtable credential from the
// config file, AIRTABLE_API_KEY (optionally sourced from a local .env file),
// or the legacy token file, in that order.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
