// Package daemon hosts the long-running Reelscope server.
//
// It wires the run manager, the optional SQLite history archive and the
// dependency preflight into a single lifecycle guarded by a flock so two
// servers never share one state directory. The HTTP API exposes runs in both
// delivery modes: streaming frames over SSE or WebSocket, and poll records by
// run identifier.
//
// Keep request handling here; pipeline behavior belongs in the pipeline
// package and archival in history.
package daemon
