// Package selector picks the next backlog URL that has not been processed.
//
// The backlog (shorts_links.json) is an externally maintained JSON array of
// objects. Each object may carry its URL under any of a priority-ordered list
// of keys. The processed set (process_track.json) is an append-only JSON
// array of {url, timestamp} records. Selection itself is pure: calling it
// twice with the same inputs returns the same candidate.
package selector
