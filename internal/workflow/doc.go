// Package workflow owns run lifecycle: the single-flight guard, the worker
// goroutine that executes pipeline runs, and the live status that triggers and
// the HTTP API poll.
//
// Every trigger source (cron, backlog watcher, API, CLI) calls Manager.Trigger.
// Trigger acquires the run guard and hands the run to the worker without
// waiting for it; a trigger that arrives while a run is active is refused.
// Finished runs are written to the history store and announced through the
// notifier.
package workflow
