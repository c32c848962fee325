// Package trigger starts pipeline runs from recurring sources: a daily cron
// schedule and a watcher that fires when the backlog file changes. Both hand
// off to the workflow manager, which refuses the trigger when a run is
// already active.
package trigger
