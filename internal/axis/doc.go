// Package axis describes how a single instrument control is discretized when
// a darkframe library is built, and how several controls combine into the
// ordered grid that indexes the library.
//
// An Axis yields the finite, ordered list of integer values visited for one
// control. A Set keeps axes in insertion order; that order fixes the
// component order of every grid key and the descent order used by closest
// and neighbour retrieval, so two sets with the same names in a different
// order are not interchangeable.
package axis
