// Package history archives finished runs in SQLite.
//
// The in-memory registry forgets runs after run_retention_minutes; the
// archive keeps a summary row plus the full result JSON for every terminal
// run so `reelscope runs show` and GET /api/history work across restarts.
// Schema changes bump schemaVersion; an archive from another version is
// rejected rather than migrated.
package history
