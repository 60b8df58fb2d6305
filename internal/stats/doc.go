// Package stats computes per-image pixel statistics of a library, used to
// sanity check captured darkframes (mean level and noise per grid point).
package stats
