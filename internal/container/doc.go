// Package container persists darkframe libraries as a hierarchy of named
// groups carrying attributes and binary datasets.
//
// The root group holds library-wide attributes (name, controls, identity).
// Below it, one level of groups per axis is keyed by the decimal string of
// the discretized value; the deepest group of a path holds the "image"
// dataset and the "camera_config" attribute.
//
// Two backends implement Container:
//
//   - SQLite (default, *.db / *.sqlite): groups, attributes and datasets
//     tables with a schema_version guard.
//   - bbolt (*.bolt / *.bbolt): one nested bucket per group.
//
// Attribute payloads are versioned msgpack records (records.go). Stored
// values are only ever decoded into fixed Go types; nothing read from a file
// is evaluated. Dataset payloads may be zstd compressed; the compression is
// recorded per dataset so readers never depend on writer options.
package container
