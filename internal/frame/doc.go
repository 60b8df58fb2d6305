// Package frame holds the pixel payload of darkframes and the instrument
// configuration captured alongside them.
//
// Images are opaque N-dimensional arrays of a single element type. The
// package only knows how to validate, compare and average them: averaging
// accumulates in float64 and casts back to the source element type, so
// integer images never overflow while k samples or interpolation candidates
// are combined.
package frame
