// Package logging assembles structured slog loggers and formatting helpers used
// across dubshorts.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, stages, and triggers. Retention pruning and a
// progress sampler for long transfers live here too, along with a no-op logger
// for tests and wiring code that cannot fail.
package logging
