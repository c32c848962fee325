// Package history records pipeline run outcomes in SQLite.
//
// The store is an observability log: one row per triggered run with its
// source, selected URL, final state, error class and publish result. It is
// never consulted for work selection; the processed-set file stays the source
// of truth for idempotence.
package history
