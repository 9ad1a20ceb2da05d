// Package manifest reads the package metadata depquery needs from an install
// tree: each package's package.json and the hidden lockfile npm leaves in
// node_modules/.package-lock.json.
//
// A [Reader] is the collaborator the tree builder consumes. [FileReader] reads
// from disk; tests substitute in-memory readers.
//
// Missing manifests are reported as [ErrNotFound] so callers can tell "no
// package here" apart from "package.json is corrupt". Both are non-fatal for
// nodes below the query root.
package manifest
