// Package config loads, normalizes, and validates darkframes configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DARKFRAMES_LIBRARY environment
// fallback. The Config type centralizes the library location, the capture
// grid (one [[controllables]] table per camera control, in key order), the
// camera settings and log output, so the CLI resolves everything in one pass
// and passes it down explicitly.
package config
