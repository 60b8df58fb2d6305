// Package retrieval turns a grid lookup into an image.
//
// Exact and Closest resolve to a single stored leaf. Neighbors collects the
// bracketing leaves around an off-grid target and blends them: candidate and
// target keys are normalized per axis with the library's observed bounds,
// Euclidean distances are taken in that unit space, and each candidate is
// weighted by the inverse of its distance so the nearest leaves dominate.
package retrieval
