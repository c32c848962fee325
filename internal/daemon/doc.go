// Package daemon coordinates the long-running dubshorts process.
//
// It wires configuration, the workflow manager, the daily cron trigger, the
// backlog watcher, and the HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. Every trigger surface funnels into
// workflow.Manager.Trigger, so the single-run guarantee holds no matter which
// surface fires.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
