// Package config loads, normalizes, and validates vidshrink configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for share credentials such
// as AWS_ACCESS_KEY_ID. Always obtain settings through this package so
// downstream code receives absolute paths, a known preset, and clear
// validation errors.
package config
