// Package gridtree implements the sparse, depth-N tree that indexes
// darkframes by their discretized control values.
//
// Level d of the tree branches on component d of a Key; nodes at the last
// level hold at most one Leaf. The tree is the single source of truth for
// which keys exist. Children are kept sorted so walks, closest descents and
// bracketing are deterministic.
//
// Closest performs an axis-ordered greedy descent: at every level it keeps
// the child nearest to the target component and never revisits the choice.
// The result depends on axis order and is not the globally nearest key in
// the combined space. That is the intended behaviour.
package gridtree
