// Package ledger keeps an append-only SQLite history of delivery job status
// changes.
//
// The JSON job records under jobs/ remain the source of truth; the ledger is
// an audit mirror that lets `splice jobs` report counts and per-job timelines
// without rescanning the job directory. Writers in several processes (the
// daemon and one-shot injections) share the database through WAL mode, a
// busy timeout, and bounded retries on SQLITE_BUSY.
//
// Schema changes bump schemaVersion in schema.go; users delete ledger.db to
// adopt the new schema.
package ledger
