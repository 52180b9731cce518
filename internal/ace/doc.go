// Package ace provides the shared core types for the atomic cluster
// expansion basis library.
//
// The package defines the geometric input types and the error taxonomy
// used across all basis components:
//
//   - [Vec3]: position / gradient vector
//   - [Neighbor]: one neighbor-list entry (relative position + species)
//   - [Environment]: the local neighborhood of one central atom
//
// # Error Handling
//
// Construction-time failures wrap [ErrBadConfig] (via [ConfigError]) and
// abort basis creation; no partially built basis is ever exposed.
// Evaluation-time geometric degeneracies wrap [ErrZeroDistance] or
// [ErrTransformDomain] (via [EvalError]) and abort only the current
// environment's evaluation.
//
// # Thread Safety
//
// A constructed basis is immutable and safe to share across concurrent
// evaluations of different environments. Per-call workspaces are not.
package ace
