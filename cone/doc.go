// Package cone defines the reduced standard form produced by
// canonicalization and consumed by backend adapters and dual recovery: an
// affine objective, an affine equality system, and an ordered stack of cone
// blocks.
//
// The row-stacking order is a first-class contract. Rows are grouped by cone
// kind in the fixed order zero → nonneg → second-order blocks → semidefinite
// blocks → exponential triples, and the Layout records which original
// constraint owns each contiguous row range. The backend adapters and the
// dual-recovery stage both index into this layout; neither recomputes
// positions independently.
//
// Conventions fixed by this package:
//   - Equality rows live in A·x = b (the zero cone). Cone rows live in
//     slack form: s = h − G·x with s in the cone.
//   - Second-order blocks are (t, x) with ‖x‖₂ ≤ t; block size counts t.
//   - Semidefinite blocks are svec-packed: the lower triangle in
//     column-major order with off-diagonal entries scaled by √2, so a block
//     of order n contributes n(n+1)/2 rows.
//   - Exponential triples (u, v, w) satisfy v·eᵘ⁄ᵛ ≤ w, v > 0 (closure).
package cone
