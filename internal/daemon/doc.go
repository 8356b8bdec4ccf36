// Package daemon runs the long-lived splice delivery process and controls it
// from the CLI.
//
// A running daemon holds a flock on daemon.lock, advertises itself through
// daemon.pid and daemon.state, and drains the pending queue on every poll.
// SIGINT and SIGTERM both trigger a graceful stop. Start re-executes the
// binary's hidden `daemon run` command in a new session when detaching. Status
// and Stop both require the pid file, a zero-signal check and the lock, so a
// recycled pid never reads as a live daemon and is never signalled.
package daemon
