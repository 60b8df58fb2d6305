// Package preflight provides readiness checks for the filesystem paths a
// capture or fusion run depends on.
//
// A capture can run for hours while controls settle, so the CLI runs
// ForCapture before starting and refuses to begin when the library directory
// is not writable or the filesystem cannot hold the uncompressed estimate of
// the frames about to be stored. ForFusion covers the target directory and
// every source file.
package preflight
