// Package main hosts the darkframes CLI entrypoint and command graph.
//
// The Cobra-based command tree captures darkframe libraries with the
// configured camera, inspects them (info, list, stats), retrieves calibration
// frames by exact, closest or interpolated lookup, removes entries and fuses
// libraries. It centralizes configuration resolution and structured logging
// setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
