// Package config loads, normalizes, and validates dubshorts configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DUBSHORTS_YOUTUBE_TOKEN. The Config type centralizes every knob the daemon
// and CLI need, from backlog locations to tone settings and publish slots.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
