// Package services defines shared utilities consumed by the pipeline stages
// and the external collaborator adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     classification (validation, timeout, auth, external tool) alongside a
//     readable message.
//
// Use these helpers when wiring new collaborator code so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
