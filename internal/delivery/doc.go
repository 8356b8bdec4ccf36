// Package delivery owns the filesystem side of getting a compiled FCPXML
// document in front of Final Cut Pro.
//
// A Manager writes documents into out/, copies them into the watch-folder with
// a same-directory rename, and persists one JSON record per job under jobs/.
// One-shot injections complete synchronously; Submit only queues a descriptor
// under pending/ for the daemon, which later calls Deliver. Every status change
// is mirrored into the optional SQLite ledger, but the JSON record on disk is
// always the source of truth and is reloaded on every read.
package delivery
