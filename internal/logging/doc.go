// Package logging assembles structured slog loggers and formatting helpers used
// across darkframes.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys so capture, library and
// fusion code emit log lines with the same shape. When a log file is
// configured, records are fanned out to the console and to a JSON file.
// NewComponentLogger accepts a nil logger and then discards everything.
package logging
