// Package preflight provides readiness checks for the directories, binaries
// and remote endpoints reelscope depends on.
//
// These checks run in two contexts:
//   - The doctor command prints every check with its detail.
//   - The HTTP API exposes the same report at /api/status.
//
// Checks for optional features are skipped when the feature is not
// configured.
package preflight
