// Package expr provides the expression-graph types for conic.
//
// This package contains node definitions and metadata only. All other
// internal packages import expr; expr imports nothing internal. This keeps
// the graph the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - The graph is a DAG, not a tree: a node may be referenced by many
//     parents. Nothing in this package (or downstream) ever mutates the
//     structure of a node after construction.
//   - Every node carries a stable int64 identity assigned from a monotonic
//     counter at construction. Verification and reduction results are
//     memoized in side tables keyed by that identity, never stored on the
//     node, so shared sub-expressions are processed exactly once and the
//     same graph can be canonicalized by independent problems concurrently.
//   - Curvature and sign metadata are computed, not declared: the atom
//     registry owns the rules, this package owns the vocabulary.
package expr
