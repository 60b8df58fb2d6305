// Package library exposes darkframe libraries: a GridTree of averaged dark
// frames keyed by discretized camera control values, persisted through the
// container package.
//
// Open loads a read-only snapshot. The container is walked once in a single
// read transaction, the in-memory tree and index are built, and the file is
// released; later writers are not observed. Snapshots do not touch the
// writer lock file. Create and OpenEdit hold an
// exclusive lock on "<path>.lock" and the open container until Close, so a
// library has at most one writer. Every Add and Remove is written through to
// the container before the in-memory tree changes.
//
// Retrieval follows three modes (see retrieval.Mode). Closest descends the
// tree greedily in axis order: each axis is matched independently given the
// choices made for earlier axes, so the result is not the globally nearest
// key in the combined space. This is intended.
package library
