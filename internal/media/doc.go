// Package media holds the pipeline data model: the accepted request, the
// artifacts each stage produces, the derived analysis reports, and the
// aggregate result returned to callers.
//
// Everything here is plain data. Values are created once by the stage that
// owns them and treated as read-only afterwards; transcript projections such
// as FormattedWithTimestamps are recomputed on demand rather than stored.
package media
